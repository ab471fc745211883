package stats

import (
	"math"

	"selectcms/domain/core"
)

// CompositeRecord is the derived per-SNP view of a window: raw scores,
// posteriors and both composites. Absent values are NaN.
type CompositeRecord struct {
	SNP        core.SNP
	Window     int
	Raw        map[TestKind]float64
	DAF        float64
	Posteriors map[TestKind]float64
	UnstdPoP   float64
	UnstdMoP   float64
	StdPoP     float64
	StdMoP     float64
}

// RawScore returns the raw score for kind, NaN when absent
func (r CompositeRecord) RawScore(kind TestKind) float64 {
	if v, ok := r.Raw[kind]; ok {
		return v
	}
	return math.NaN()
}

// Values returns the numeric columns in OutputColumns order, after snp_id and position.
func (r CompositeRecord) Values() []float64 {
	return []float64{
		r.RawScore(TestIHS),
		r.RawScore(TestXPEHH),
		r.RawScore(TestIHH),
		r.RawScore(TestDDAF),
		r.DAF,
		r.RawScore(TestFst),
		r.UnstdPoP,
		r.UnstdMoP,
		r.StdPoP,
		r.StdMoP,
	}
}

// ScoreRow is one line of a precomputed per-test score table. DAF is only
// meaningful for the allele frequency differential table and is NaN elsewhere.
type ScoreRow struct {
	SNP   core.SNP
	Score float64
	DAF   float64
}
