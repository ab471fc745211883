package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"selectcms/domain/core"
)

// EmpiricalDistribution is an immutable, sorted sample of simulated scores for
// one test under one scenario (neutral or selection).
type EmpiricalDistribution struct {
	kind   TestKind
	sorted []float64 // ascending
	abs    []float64 // ascending |v|
}

// NewEmpiricalDistribution copies the finite values of samples into a new
// distribution. It fails with ErrDegenerateDistribution when nothing finite remains.
func NewEmpiricalDistribution(kind TestKind, samples []float64) (*EmpiricalDistribution, error) {
	finite := make([]float64, 0, len(samples))
	for _, v := range samples {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return nil, fmt.Errorf("%w: %s has no finite simulated values", core.ErrDegenerateDistribution, kind)
	}

	sort.Float64s(finite)
	abs := make([]float64, len(finite))
	for i, v := range finite {
		abs[i] = math.Abs(v)
	}
	sort.Float64s(abs)

	return &EmpiricalDistribution{kind: kind, sorted: finite, abs: abs}, nil
}

// Kind returns the test this distribution was simulated for
func (d *EmpiricalDistribution) Kind() TestKind { return d.kind }

// Len returns the number of simulated values
func (d *EmpiricalDistribution) Len() int { return len(d.sorted) }

// Min and Max of the simulated values
func (d *EmpiricalDistribution) Min() float64 { return d.sorted[0] }
func (d *EmpiricalDistribution) Max() float64 { return d.sorted[len(d.sorted)-1] }

// Mean of the simulated values
func (d *EmpiricalDistribution) Mean() float64 {
	return floats.Sum(d.sorted) / float64(len(d.sorted))
}

// Probability returns the empirical tail probability of observing a value at
// least as extreme as score. One-sided uses the upper tail (v >= score);
// two-sided counts |v| >= |score|. A NaN score yields NaN.
func (d *EmpiricalDistribution) Probability(score float64, twoSided bool) float64 {
	if math.IsNaN(score) {
		return math.NaN()
	}

	values := d.sorted
	if twoSided {
		values = d.abs
		score = math.Abs(score)
	}

	// first index with value >= score
	idx := sort.SearchFloat64s(values, score)
	return float64(len(values)-idx) / float64(len(values))
}

// ============================================================================
// DISTRIBUTION SET
// ============================================================================

// DistributionPair holds the matched neutral and selection distributions for one test.
type DistributionPair struct {
	Neutral   *EmpiricalDistribution
	Selection *EmpiricalDistribution
}

// DistributionSet maps every test to its simulated distribution pair. It is
// built once per run and shared read-only.
type DistributionSet struct {
	pairs map[TestKind]DistributionPair
}

// NewDistributionSet validates that every test in AllTests has both scenarios.
func NewDistributionSet(neutral, selection map[TestKind]*EmpiricalDistribution) (*DistributionSet, error) {
	pairs := make(map[TestKind]DistributionPair, len(AllTests))
	for _, spec := range AllTests {
		n, ok := neutral[spec.Kind]
		if !ok || n == nil {
			return nil, fmt.Errorf("%w: missing neutral simulation for %s", core.ErrUpstreamData, spec.Kind)
		}
		s, ok := selection[spec.Kind]
		if !ok || s == nil {
			return nil, fmt.Errorf("%w: missing selection simulation for %s", core.ErrUpstreamData, spec.Kind)
		}
		pairs[spec.Kind] = DistributionPair{Neutral: n, Selection: s}
	}
	return &DistributionSet{pairs: pairs}, nil
}

// Pair returns the distributions for kind
func (ds *DistributionSet) Pair(kind TestKind) (DistributionPair, bool) {
	p, ok := ds.pairs[kind]
	return p, ok
}
