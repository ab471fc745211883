package signals

import (
	"context"
	"fmt"
	"math"

	"selectcms/domain/core"
	"selectcms/domain/stats"
)

// Window is the shared, read-only description of the genomic interval every
// scorer works on.
type Window struct {
	Number int
	Start  int
	End    int
}

// Contains reports whether position lies inside [Start, End]
func (w Window) Contains(position int) bool {
	return position >= w.Start && position <= w.End
}

func (w Window) String() string {
	return fmt.Sprintf("win%d[%d-%d]", w.Number, w.Start, w.End)
}

// Result is the output of a single evolutionary test over one window
type Result struct {
	Kind   stats.TestKind
	Scores map[core.SNP]float64
	// DAF is filled only by the allele frequency differential test, which
	// produces the derived allele frequency alongside dDAF.
	DAF map[core.SNP]float64
}

// Scorer is one evolutionary test statistic: it computes a raw score per SNP
// over a window. Implementations only write to the Result they return.
type Scorer interface {
	Name() string
	Spec() stats.TestSpec
	Score(ctx context.Context, win Window) (Result, error)
}

// ============================================================================
// TABLE-BACKED SCORER
// ============================================================================

// RowLoader returns every row of a precomputed score table
type RowLoader func(ctx context.Context) ([]stats.ScoreRow, error)

// TableScorer serves scores computed by an external tool, restricted to the window.
type TableScorer struct {
	spec stats.TestSpec
	load RowLoader
}

// NewTableScorer creates a scorer for kind backed by load
func NewTableScorer(kind stats.TestKind, load RowLoader) (*TableScorer, error) {
	spec, ok := stats.SpecFor(kind)
	if !ok {
		return nil, fmt.Errorf("unknown test statistic %q", kind)
	}
	return &TableScorer{spec: spec, load: load}, nil
}

// Name returns the test name
func (s *TableScorer) Name() string { return string(s.spec.Kind) }

// Spec returns the test description
func (s *TableScorer) Spec() stats.TestSpec { return s.spec }

// Score keeps the rows that fall inside win. A window with no finite score
// fails with ErrInsufficientData.
func (s *TableScorer) Score(ctx context.Context, win Window) (Result, error) {
	rows, err := s.load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.Name(), err)
	}

	res := Result{Kind: s.spec.Kind, Scores: make(map[core.SNP]float64)}
	if s.spec.Kind == stats.TestDDAF {
		res.DAF = make(map[core.SNP]float64)
	}

	for i, row := range rows {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		if !win.Contains(row.SNP.Position) {
			continue
		}
		if !math.IsNaN(row.Score) {
			res.Scores[row.SNP] = row.Score
		}
		if res.DAF != nil && !math.IsNaN(row.DAF) {
			res.DAF[row.SNP] = row.DAF
		}
	}

	if len(res.Scores) == 0 {
		return Result{}, fmt.Errorf("%s: %w: no informative markers in %s", s.Name(), core.ErrInsufficientData, win)
	}
	return res, nil
}

// ============================================================================
// FUNCTION-BACKED SCORER
// ============================================================================

// ScoreFunc computes raw scores for a window
type ScoreFunc func(ctx context.Context, win Window) (map[core.SNP]float64, error)

// FuncScorer adapts an in-process statistic implementation to Scorer
type FuncScorer struct {
	spec stats.TestSpec
	fn   ScoreFunc
	daf  ScoreFunc
}

// NewFuncScorer creates a scorer for kind backed by fn
func NewFuncScorer(kind stats.TestKind, fn ScoreFunc) (*FuncScorer, error) {
	spec, ok := stats.SpecFor(kind)
	if !ok {
		return nil, fmt.Errorf("unknown test statistic %q", kind)
	}
	return &FuncScorer{spec: spec, fn: fn}, nil
}

// WithDAF attaches the derived allele frequency computation (dDAF only)
func (s *FuncScorer) WithDAF(fn ScoreFunc) *FuncScorer {
	s.daf = fn
	return s
}

// Name returns the test name
func (s *FuncScorer) Name() string { return string(s.spec.Kind) }

// Spec returns the test description
func (s *FuncScorer) Spec() stats.TestSpec { return s.spec }

// Score runs the wrapped function
func (s *FuncScorer) Score(ctx context.Context, win Window) (Result, error) {
	scores, err := s.fn(ctx, win)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", s.Name(), err)
	}
	res := Result{Kind: s.spec.Kind, Scores: scores}
	if s.daf != nil {
		daf, err := s.daf(ctx, win)
		if err != nil {
			return Result{}, fmt.Errorf("%s DAF: %w", s.Name(), err)
		}
		res.DAF = daf
	}
	return res, nil
}
