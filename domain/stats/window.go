package stats

import (
	"fmt"
	"math"

	"selectcms/domain/core"
)

// WindowStats holds every per-SNP score for one genomic window, or for a
// merged range of windows.
//
// Lifecycle: raw test scores are set once per test after the runner barrier,
// composites are computed once, standardized in place, then read for output.
type WindowStats struct {
	Number int
	Start  int
	End    int

	scores map[TestKind]map[core.SNP]float64
	daf    map[core.SNP]float64

	unstdPoP map[core.SNP]float64
	unstdMoP map[core.SNP]float64
	stdPoP   map[core.SNP]float64
	stdMoP   map[core.SNP]float64

	posteriors map[core.SNP]map[TestKind]float64
}

// NewWindowStats creates an empty window
func NewWindowStats(number, start, end int) *WindowStats {
	ws := &WindowStats{
		Number:     number,
		Start:      start,
		End:        end,
		scores:     make(map[TestKind]map[core.SNP]float64, len(AllTests)),
		daf:        make(map[core.SNP]float64),
		unstdPoP:   make(map[core.SNP]float64),
		unstdMoP:   make(map[core.SNP]float64),
		stdPoP:     make(map[core.SNP]float64),
		stdMoP:     make(map[core.SNP]float64),
		posteriors: make(map[core.SNP]map[TestKind]float64),
	}
	for _, spec := range AllTests {
		ws.scores[spec.Kind] = make(map[core.SNP]float64)
	}
	return ws
}

// String returns a short label for logs
func (ws *WindowStats) String() string {
	return fmt.Sprintf("win%d[%d-%d]", ws.Number, ws.Start, ws.End)
}

// SetScores replaces the raw scores for one test. NaN values are dropped so
// that a missing score and a NaN score are indistinguishable downstream.
func (ws *WindowStats) SetScores(kind TestKind, scores map[core.SNP]float64) {
	m := make(map[core.SNP]float64, len(scores))
	for snp, v := range scores {
		if !math.IsNaN(v) {
			m[snp] = v
		}
	}
	ws.scores[kind] = m
}

// AddScore sets a single raw score
func (ws *WindowStats) AddScore(kind TestKind, snp core.SNP, v float64) {
	if math.IsNaN(v) {
		return
	}
	m, ok := ws.scores[kind]
	if !ok {
		m = make(map[core.SNP]float64)
		ws.scores[kind] = m
	}
	m[snp] = v
}

// SetDAF replaces the derived allele frequency scores
func (ws *WindowStats) SetDAF(daf map[core.SNP]float64) {
	m := make(map[core.SNP]float64, len(daf))
	for snp, v := range daf {
		if !math.IsNaN(v) {
			m[snp] = v
		}
	}
	ws.daf = m
}

// AddDAF sets a single derived allele frequency
func (ws *WindowStats) AddDAF(snp core.SNP, v float64) {
	if !math.IsNaN(v) {
		ws.daf[snp] = v
	}
}

// Score returns the raw score of kind at snp, or NaN if absent
func (ws *WindowStats) Score(kind TestKind, snp core.SNP) float64 {
	return lookup(ws.scores[kind], snp)
}

// HasScore reports whether kind scored snp
func (ws *WindowStats) HasScore(kind TestKind, snp core.SNP) bool {
	_, ok := ws.scores[kind][snp]
	return ok
}

// Scores returns the raw score map for kind. Callers must not modify it.
func (ws *WindowStats) Scores(kind TestKind) map[core.SNP]float64 {
	return ws.scores[kind]
}

// DAF returns the derived allele frequency at snp and whether it is known
func (ws *WindowStats) DAF(snp core.SNP) (float64, bool) {
	v, ok := ws.daf[snp]
	return v, ok
}

// ScoredSNPs returns every SNP with a raw score from at least one test, in
// SNP order. SNPs that only carry a DAF value are not included.
func (ws *WindowStats) ScoredSNPs() []core.SNP {
	set := make(map[core.SNP]struct{})
	for _, m := range ws.scores {
		for snp := range m {
			set[snp] = struct{}{}
		}
	}
	return core.SortedKeys(set)
}

// AllSNPs returns every SNP scored by at least one test (or carrying a DAF
// value), in SNP order.
func (ws *WindowStats) AllSNPs() []core.SNP {
	set := make(map[core.SNP]struct{})
	for _, m := range ws.scores {
		for snp := range m {
			set[snp] = struct{}{}
		}
	}
	for snp := range ws.daf {
		set[snp] = struct{}{}
	}
	for snp := range ws.unstdPoP {
		set[snp] = struct{}{}
	}
	for snp := range ws.unstdMoP {
		set[snp] = struct{}{}
	}
	return core.SortedKeys(set)
}

// NumSNPs returns len(AllSNPs())
func (ws *WindowStats) NumSNPs() int {
	return len(ws.AllSNPs())
}

// ContainsSNP reports whether the window holds any data for snp
func (ws *WindowStats) ContainsSNP(snp core.SNP) bool {
	for _, m := range ws.scores {
		if _, ok := m[snp]; ok {
			return true
		}
	}
	if _, ok := ws.daf[snp]; ok {
		return true
	}
	if _, ok := ws.unstdPoP[snp]; ok {
		return true
	}
	_, ok := ws.unstdMoP[snp]
	return ok
}

// ============================================================================
// COMPOSITE SCORES
// ============================================================================

// SetComposite records the unstandardized composite scores for snp. NaN
// marks an undefined composite and is not stored.
func (ws *WindowStats) SetComposite(snp core.SNP, pop, mop float64) {
	if !math.IsNaN(pop) {
		ws.unstdPoP[snp] = pop
	}
	if !math.IsNaN(mop) {
		ws.unstdMoP[snp] = mop
	}
}

// SetPosteriors records the per-test posteriors used to build the composites
func (ws *WindowStats) SetPosteriors(snp core.SNP, posteriors map[TestKind]float64) {
	ws.posteriors[snp] = posteriors
}

// UnstdPoP returns the product composites. Callers must not modify it.
func (ws *WindowStats) UnstdPoP() map[core.SNP]float64 { return ws.unstdPoP }

// UnstdMoP returns the mean composites. Callers must not modify it.
func (ws *WindowStats) UnstdMoP() map[core.SNP]float64 { return ws.unstdMoP }

// StdPoP returns the standardized product composites
func (ws *WindowStats) StdPoP() map[core.SNP]float64 { return ws.stdPoP }

// StdMoP returns the standardized mean composites
func (ws *WindowStats) StdMoP() map[core.SNP]float64 { return ws.stdMoP }

// AddUnstdPoP merges product composites from another window
func (ws *WindowStats) AddUnstdPoP(m map[core.SNP]float64) {
	for snp, v := range m {
		ws.unstdPoP[snp] = v
	}
}

// AddUnstdMoP merges mean composites from another window
func (ws *WindowStats) AddUnstdMoP(m map[core.SNP]float64) {
	for snp, v := range m {
		ws.unstdMoP[snp] = v
	}
}

// SetStdPoP replaces the standardized product composites
func (ws *WindowStats) SetStdPoP(m map[core.SNP]float64) { ws.stdPoP = m }

// SetStdMoP replaces the standardized mean composites
func (ws *WindowStats) SetStdMoP(m map[core.SNP]float64) { ws.stdMoP = m }

// PutStdPoP sets one standardized product composite. Only SNPs that already
// carry an unstandardized composite in this window are accepted.
func (ws *WindowStats) PutStdPoP(snp core.SNP, v float64) bool {
	if _, ok := ws.unstdPoP[snp]; !ok {
		return false
	}
	ws.stdPoP[snp] = v
	return true
}

// PutStdMoP sets one standardized mean composite, see PutStdPoP.
func (ws *WindowStats) PutStdMoP(snp core.SNP, v float64) bool {
	if _, ok := ws.unstdMoP[snp]; !ok {
		return false
	}
	ws.stdMoP[snp] = v
	return true
}

// Record materializes the full score record for snp
func (ws *WindowStats) Record(snp core.SNP) CompositeRecord {
	rec := CompositeRecord{
		SNP:        snp,
		Window:     ws.Number,
		Raw:        make(map[TestKind]float64, len(AllTests)),
		Posteriors: ws.posteriors[snp],
		DAF:        math.NaN(),
		UnstdPoP:   lookup(ws.unstdPoP, snp),
		UnstdMoP:   lookup(ws.unstdMoP, snp),
		StdPoP:     lookup(ws.stdPoP, snp),
		StdMoP:     lookup(ws.stdMoP, snp),
	}
	for _, spec := range AllTests {
		rec.Raw[spec.Kind] = ws.Score(spec.Kind, snp)
	}
	if v, ok := ws.daf[snp]; ok {
		rec.DAF = v
	}
	return rec
}

// Records returns the records of every SNP in SNP order
func (ws *WindowStats) Records() []CompositeRecord {
	snps := ws.AllSNPs()
	out := make([]CompositeRecord, 0, len(snps))
	for _, snp := range snps {
		out = append(out, ws.Record(snp))
	}
	return out
}

func lookup(m map[core.SNP]float64, snp core.SNP) float64 {
	if v, ok := m[snp]; ok {
		return v
	}
	return math.NaN()
}
