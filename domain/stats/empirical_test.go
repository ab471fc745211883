package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"selectcms/domain/core"
)

func TestEmpiricalDistribution_OneSided(t *testing.T) {
	d, err := NewEmpiricalDistribution(TestFst, []float64{0.1, 0.2, 0.3, 0.4, math.NaN()})
	require.NoError(t, err)

	assert.Equal(t, 4, d.Len())
	assert.Equal(t, TestFst, d.Kind())
	assert.Equal(t, 0.1, d.Min())
	assert.Equal(t, 0.4, d.Max())
	assert.InDelta(t, 1.0, d.Probability(0.0, false), 1e-12)
	assert.InDelta(t, 0.5, d.Probability(0.3, false), 1e-12)
	assert.InDelta(t, 0.25, d.Probability(0.35, false), 1e-12)
	assert.InDelta(t, 0.0, d.Probability(0.5, false), 1e-12)
}

func TestEmpiricalDistribution_TwoSided(t *testing.T) {
	d, err := NewEmpiricalDistribution(TestIHS, []float64{-3, -1, 0, 1, 2})
	require.NoError(t, err)

	// |v| >= 1 -> {-3, -1, 1, 2}
	assert.InDelta(t, 0.8, d.Probability(1, true), 1e-12)
	assert.InDelta(t, 0.8, d.Probability(-1, true), 1e-12)
	// |v| >= 2.5 -> {-3}
	assert.InDelta(t, 0.2, d.Probability(-2.5, true), 1e-12)
	assert.True(t, math.IsNaN(d.Probability(math.NaN(), true)))
}

func TestEmpiricalDistribution_BoundedAndMonotone(t *testing.T) {
	samples := make([]float64, 0, 201)
	for i := -100; i <= 100; i++ {
		samples = append(samples, float64(i)/10)
	}
	d, err := NewEmpiricalDistribution(TestIHH, samples)
	require.NoError(t, err)

	for _, twoSided := range []bool{false, true} {
		prev := 1.0
		for s := 0.0; s <= 12; s += 0.25 {
			p := d.Probability(s, twoSided)
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
			assert.LessOrEqual(t, p, prev, "probability must not increase further into the tail")
			prev = p
		}
	}
}

func TestEmpiricalDistribution_Degenerate(t *testing.T) {
	_, err := NewEmpiricalDistribution(TestXPEHH, []float64{math.NaN(), math.Inf(1)})
	assert.ErrorIs(t, err, core.ErrDegenerateDistribution)
}

func TestDistributionSet_RequiresAllTests(t *testing.T) {
	d, err := NewEmpiricalDistribution(TestIHS, []float64{1, 2})
	require.NoError(t, err)

	_, err = NewDistributionSet(
		map[TestKind]*EmpiricalDistribution{TestIHS: d},
		map[TestKind]*EmpiricalDistribution{TestIHS: d},
	)
	assert.ErrorIs(t, err, core.ErrUpstreamData)
}

func TestSpecFor_Sidedness(t *testing.T) {
	twoSided := map[TestKind]bool{TestIHS: true, TestIHH: true, TestDDAF: true, TestXPEHH: false, TestFst: false}
	for kind, want := range twoSided {
		spec, ok := SpecFor(kind)
		require.True(t, ok)
		assert.Equal(t, want, spec.TwoSided(), string(kind))
	}
}
