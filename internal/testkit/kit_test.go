package testkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"selectcms/domain/stats"
)

func TestDistributions_SelectionShiftedIntoTail(t *testing.T) {
	ds, err := NewTestKit(1).Distributions(2000)
	require.NoError(t, err)

	for _, spec := range stats.AllTests {
		pair, ok := ds.Pair(spec.Kind)
		require.True(t, ok)
		assert.Greater(t, pair.Selection.Mean(), pair.Neutral.Mean(), string(spec.Kind))
		// a score of 2 is far more common under selection
		assert.Greater(t, pair.Selection.Probability(2, spec.TwoSided()), pair.Neutral.Probability(2, spec.TwoSided()))
	}
}

func TestRandomWindow_Deterministic(t *testing.T) {
	snps := SNPs(1000, 10, 5)
	a := NewTestKit(7).RandomWindow(1, snps)
	b := NewTestKit(7).RandomWindow(1, snps)

	for _, snp := range snps {
		assert.Equal(t, a.Score(stats.TestIHS, snp), b.Score(stats.TestIHS, snp))
	}
	assert.Equal(t, 1000, a.Start)
	assert.Equal(t, 1040, a.End)
}
