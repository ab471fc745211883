package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"selectcms/domain/core"
	"selectcms/domain/stats"
	"selectcms/internal/testkit"
)

// simpleDistributions uses neutral {0,1,2,3} and selection {2,3,4,5} for every
// test, so a score of 2 has P_neut = 0.5 and P_sel = 1 in either sidedness.
func simpleDistributions(t *testing.T) *stats.DistributionSet {
	t.Helper()
	neutral := make(map[stats.TestKind]*stats.EmpiricalDistribution)
	selection := make(map[stats.TestKind]*stats.EmpiricalDistribution)
	for _, spec := range stats.AllTests {
		n, err := stats.NewEmpiricalDistribution(spec.Kind, []float64{0, 1, 2, 3})
		require.NoError(t, err)
		s, err := stats.NewEmpiricalDistribution(spec.Kind, []float64{2, 3, 4, 5})
		require.NoError(t, err)
		neutral[spec.Kind], selection[spec.Kind] = n, s
	}
	ds, err := stats.NewDistributionSet(neutral, selection)
	require.NoError(t, err)
	return ds
}

func allScores(v float64) map[stats.TestKind]float64 {
	out := make(map[stats.TestKind]float64)
	for _, spec := range stats.AllTests {
		out[spec.Kind] = v
	}
	return out
}

func TestPosterior_BayesRule(t *testing.T) {
	c, err := NewCompositeScorer(simpleDistributions(t), DefaultCompositeOptions())
	require.NoError(t, err)

	// 1*0.25 / (1*0.25 + 0.5*0.75) = 0.4
	assert.InDelta(t, 0.4, c.Posterior(stats.TestFst, 2, 0.25), 1e-12)
	assert.True(t, math.IsNaN(c.Posterior(stats.TestFst, math.NaN(), 0.25)))
	// outside both supports: zero denominator
	assert.True(t, math.IsNaN(c.Posterior(stats.TestFst, 10, 0.25)))
}

func TestScoreSNP_ProductIsExactProduct(t *testing.T) {
	c, err := NewCompositeScorer(simpleDistributions(t), DefaultCompositeOptions())
	require.NoError(t, err)

	comp := c.ScoreSNP(allScores(2), 0.5, 0.25)
	require.Len(t, comp.Posteriors, 5)
	assert.InDelta(t, math.Pow(0.4, 5), comp.PoP, 1e-12)
	assert.InDelta(t, 0.4, comp.MoP, 1e-12)
}

func TestScoreSNP_DAFGate(t *testing.T) {
	c, err := NewCompositeScorer(simpleDistributions(t), DefaultCompositeOptions())
	require.NoError(t, err)

	low := c.ScoreSNP(allScores(2), 0.1, 0.25)
	assert.True(t, math.IsNaN(low.PoP), "DAF below cutoff drops the product")
	assert.True(t, math.IsNaN(low.MoP), "gate applies to the mean when enabled")

	missing := c.ScoreSNP(allScores(2), math.NaN(), 0.25)
	assert.True(t, math.IsNaN(missing.PoP), "unknown DAF cannot pass the gate")

	opts := DefaultCompositeOptions()
	opts.GateMeanOnDAF = false
	ungated, err := NewCompositeScorer(simpleDistributions(t), opts)
	require.NoError(t, err)
	comp := ungated.ScoreSNP(allScores(2), 0.1, 0.25)
	assert.True(t, math.IsNaN(comp.PoP))
	assert.InDelta(t, 0.4, comp.MoP, 1e-12)

	opts = DefaultCompositeOptions()
	opts.DAFCutoff = 0
	noCutoff, err := NewCompositeScorer(simpleDistributions(t), opts)
	require.NoError(t, err)
	comp = noCutoff.ScoreSNP(allScores(2), 0.01, 0.25)
	assert.False(t, math.IsNaN(comp.PoP))
	assert.False(t, math.IsNaN(comp.MoP))
}

func TestScoreSNP_MeanUsesOnlyPresentScores(t *testing.T) {
	c, err := NewCompositeScorer(simpleDistributions(t), DefaultCompositeOptions())
	require.NoError(t, err)

	raw := map[stats.TestKind]float64{
		stats.TestIHS: 2,          // 0.4
		stats.TestFst: 3,          // sel 0.75, neut 0.25 -> 0.1875/(0.1875+0.1875) = 0.5
		stats.TestIHH: math.NaN(), // absent
	}
	comp := c.ScoreSNP(raw, 0.9, 0.25)

	assert.True(t, math.IsNaN(comp.PoP))
	assert.InDelta(t, (0.4+0.5)/2, comp.MoP, 1e-12)
	assert.Len(t, comp.Posteriors, 2)

	none := c.ScoreSNP(map[stats.TestKind]float64{}, 0.9, 0.25)
	assert.True(t, math.IsNaN(none.MoP))
}

// Three SNPs, iHS = [1, 2, NaN], every other test 1.0, DAF 0.5 everywhere.
func TestScoreWindow_NaNScenario(t *testing.T) {
	ds, err := testkit.NewTestKit(11).Distributions(5000)
	require.NoError(t, err)
	c, err := NewCompositeScorer(ds, DefaultCompositeOptions())
	require.NoError(t, err)

	snps := testkit.SNPs(100, 100, 3)
	ws := stats.NewWindowStats(1, 100, 300)
	ws.SetScores(stats.TestIHS, map[core.SNP]float64{snps[0]: 1, snps[1]: 2, snps[2]: math.NaN()})
	for _, spec := range stats.AllTests[1:] {
		ws.SetScores(spec.Kind, testkit.Constant(snps, 1))
	}
	ws.SetDAF(testkit.Constant(snps, 0.5))

	products, means := c.ScoreWindow(ws)
	assert.Equal(t, 2, products)
	assert.Equal(t, 3, means)

	prior := 1.0 / 3
	rec := ws.Record(snps[2])
	assert.True(t, math.IsNaN(rec.UnstdPoP))

	want := 0.0
	for _, spec := range stats.AllTests[1:] {
		want += c.Posterior(spec.Kind, 1, prior)
	}
	assert.InDelta(t, want/4, rec.UnstdMoP, 1e-12)
	assert.NotContains(t, rec.Posteriors, stats.TestIHS)

	first := ws.Record(snps[0])
	wantProd := 1.0
	for _, spec := range stats.AllTests {
		wantProd *= c.Posterior(spec.Kind, 1, prior)
	}
	assert.InDelta(t, wantProd, first.UnstdPoP, 1e-12)
}

// One SNP scored by every test, three more carrying only a DAF value.
func TestScoreWindow_PriorCountsScoredSNPsOnly(t *testing.T) {
	c, err := NewCompositeScorer(simpleDistributions(t), DefaultCompositeOptions())
	require.NoError(t, err)

	snps := testkit.SNPs(100, 10, 4)
	ws := stats.NewWindowStats(1, 100, 140)
	for _, spec := range stats.AllTests {
		ws.SetScores(spec.Kind, map[core.SNP]float64{snps[0]: 2})
	}
	ws.SetDAF(testkit.Constant(snps, 0.5))
	require.Len(t, ws.AllSNPs(), 4)
	require.Len(t, ws.ScoredSNPs(), 1)

	products, means := c.ScoreWindow(ws)
	assert.Equal(t, 1, products)
	assert.Equal(t, 1, means)

	// prior 1/1: 1*1 / (1*1 + 0.5*0) = 1; a 1/4 prior would give 0.4
	rec := ws.Record(snps[0])
	for _, spec := range stats.AllTests {
		assert.InDelta(t, 1.0, rec.Posteriors[spec.Kind], 1e-12, spec.Kind)
	}
	assert.InDelta(t, 1.0, rec.UnstdMoP, 1e-12)

	for _, snp := range snps[1:] {
		r := ws.Record(snp)
		assert.True(t, math.IsNaN(r.UnstdPoP))
		assert.True(t, math.IsNaN(r.UnstdMoP))
	}
}

func TestPrior(t *testing.T) {
	c, err := NewCompositeScorer(simpleDistributions(t), DefaultCompositeOptions())
	require.NoError(t, err)
	assert.InDelta(t, 0.001, c.Prior(1000), 1e-15)

	opts := DefaultCompositeOptions()
	opts.PriorOverride = 0.05
	c, err = NewCompositeScorer(simpleDistributions(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 0.05, c.Prior(1000))

	opts.PriorOverride = 2
	_, err = NewCompositeScorer(simpleDistributions(t), opts)
	assert.Error(t, err)
}
