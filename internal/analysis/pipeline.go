package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"selectcms/adapters/stats/signals"
	"selectcms/domain/core"
	"selectcms/domain/run"
	"selectcms/domain/stats"
	"selectcms/internal"
	"selectcms/internal/errors"
	"selectcms/internal/runner"
	"selectcms/ports"
)

// WindowPipeline scores one window end to end: parallel tests, composites,
// per-window standardization and the window stats file.
type WindowPipeline struct {
	runner    *runner.TestRunner
	scorers   []signals.Scorer
	composite *CompositeScorer
	sink      ports.WindowSink
	logger    *internal.Logger
}

// NewWindowPipeline wires the stages together. sink may be nil, in which
// case windows are only kept in memory.
func NewWindowPipeline(r *runner.TestRunner, engine *signals.Engine, composite *CompositeScorer, sink ports.WindowSink, logger *internal.Logger) *WindowPipeline {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &WindowPipeline{
		runner:    r,
		scorers:   engine.Scorers(),
		composite: composite,
		sink:      sink,
		logger:    logger,
	}
}

// Process runs every test over win and returns the populated window. The
// returned path is empty when no sink is configured.
func (p *WindowPipeline) Process(ctx context.Context, win signals.Window) (*stats.WindowStats, string, error) {
	logger := p.logger.Window(win.Number)
	start := time.Now()

	results, err := p.runner.Run(ctx, win, p.scorers)
	if err != nil {
		return nil, "", err
	}

	ws := stats.NewWindowStats(win.Number, win.Start, win.End)
	for _, res := range results {
		ws.SetScores(res.Kind, res.Scores)
		if res.DAF != nil {
			ws.SetDAF(res.DAF)
		}
	}

	products, means := p.composite.ScoreWindow(ws)
	NormalizeWindow(ws)
	logger.Info("%d SNPs, %d product and %d mean composites in %v", ws.NumSNPs(), products, means, time.Since(start))

	if p.sink == nil {
		return ws, "", nil
	}
	path, err := p.sink.WriteWindow(ws)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", core.ErrOutputIO, ws, err)
	}
	logger.Debug("wrote %s", path)
	return ws, path, nil
}

// ============================================================================
// BATCH DRIVER
// ============================================================================

// WindowOutcome is the result of one window in a batch
type WindowOutcome struct {
	Window signals.Window
	Stats  *stats.WindowStats
	Path   string
	Err    error
}

// BatchReport collects the outcomes of a batch in window order
type BatchReport struct {
	Outcomes []WindowOutcome
}

// Succeeded returns the windows that completed, in input order
func (r *BatchReport) Succeeded() []*stats.WindowStats {
	var out []*stats.WindowStats
	for _, o := range r.Outcomes {
		if o.Err == nil && o.Stats != nil {
			out = append(out, o.Stats)
		}
	}
	return out
}

// Failures returns a classified record of every failed window
func (r *BatchReport) Failures() []run.WindowFailure {
	var out []run.WindowFailure
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, run.WindowFailure{
				Window: o.Window.Number,
				Code:   errors.ClassifyWindowError(o.Err),
				Detail: o.Err.Error(),
			})
		}
	}
	return out
}

// BatchRunner processes many windows with bounded parallelism. A failed
// window is logged and recorded; it never stops its siblings.
type BatchRunner struct {
	pipeline *WindowPipeline
	sem      *semaphore.Weighted
	parallel int
	logger   *internal.Logger
}

// NewBatchRunner allows up to parallel windows in flight at once
func NewBatchRunner(pipeline *WindowPipeline, parallel int, logger *internal.Logger) *BatchRunner {
	if parallel < 1 {
		parallel = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &BatchRunner{
		pipeline: pipeline,
		sem:      semaphore.NewWeighted(int64(parallel)),
		parallel: parallel,
		logger:   logger,
	}
}

// RunWindows processes every window. It only returns an error when ctx is
// cancelled before all windows could be started; per-window failures are in
// the report.
func (b *BatchRunner) RunWindows(ctx context.Context, windows []signals.Window) (*BatchReport, error) {
	report := &BatchReport{Outcomes: make([]WindowOutcome, len(windows))}
	b.logger.Info("processing %d windows, %d at a time", len(windows), b.parallel)

	var wg sync.WaitGroup
	var acquireErr error
	for i, win := range windows {
		report.Outcomes[i].Window = win
		err := ctx.Err()
		if err == nil {
			err = b.sem.Acquire(ctx, 1)
		}
		if err != nil {
			acquireErr = err
			for j := i; j < len(windows); j++ {
				report.Outcomes[j] = WindowOutcome{Window: windows[j], Err: err}
			}
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer b.sem.Release(1)

			ws, path, err := b.pipeline.Process(ctx, win)
			if err != nil {
				b.logger.Window(win.Number).Failure(errors.ClassifyWindowError(err), err)
			}
			report.Outcomes[i] = WindowOutcome{Window: win, Stats: ws, Path: path, Err: err}
		}()
	}
	wg.Wait()

	failed := len(report.Failures())
	b.logger.Info("%d windows done, %d failed", len(windows)-failed, failed)
	if acquireErr != nil {
		return report, acquireErr
	}
	return report, nil
}

// ============================================================================
// SIGNIFICANCE ANALYSIS
// ============================================================================

// AnalysisResult is the outcome of selecting significant loci over windows
type AnalysisResult struct {
	Loci    []stats.CompositeRecord
	Windows int
	Pooled  bool
	Cutoff  float64
}

// Analyzer applies optional pooled standardization and the significance
// selector to a set of scored windows.
type Analyzer struct {
	selector *SignificanceSelector
	pooled   bool
	logger   *internal.Logger
}

// NewAnalyzer creates an analyzer. With pooled set, the per-window
// standardized composites are replaced by run-wide ones.
func NewAnalyzer(selector *SignificanceSelector, pooled bool, logger *internal.Logger) *Analyzer {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Analyzer{selector: selector, pooled: pooled, logger: logger}
}

// Analyze selects the significant loci across windows
func (a *Analyzer) Analyze(windows []*stats.WindowStats) AnalysisResult {
	if a.pooled {
		merged := NormalizePooled(windows)
		a.logger.Info("pooled standardization over %d windows (%d product, %d mean composites)",
			len(windows), len(merged.UnstdPoP()), len(merged.UnstdMoP()))
	}

	loci := a.selector.Select(windows)
	a.logger.Info("%d significant loci at p=%g (z>=%.4f, policy=%s)",
		len(loci), a.selector.PValue(), a.selector.Cutoff(), a.selector.Policy())

	return AnalysisResult{
		Loci:    loci,
		Windows: len(windows),
		Pooled:  a.pooled,
		Cutoff:  a.selector.Cutoff(),
	}
}

// ============================================================================
// WINDOW PLANNING
// ============================================================================

// MaxWindowSize is the largest accepted window, in base pairs
const MaxWindowSize = 100_000_000

// PlanWindows tiles [start, end] with consecutive windows of size base pairs,
// numbered from 0. The last window is cut at end.
func PlanWindows(start, end, size int) ([]signals.Window, error) {
	if size <= 0 || size > MaxWindowSize {
		return nil, fmt.Errorf("window size must lie in (0, %d], got %d", MaxWindowSize, size)
	}
	if end < start {
		return nil, fmt.Errorf("region end %d is before start %d", end, start)
	}
	var out []signals.Window
	for n, lo := 0, start; lo <= end; n, lo = n+1, lo+size {
		hi := lo + size - 1
		if hi > end {
			hi = end
		}
		out = append(out, signals.Window{Number: n, Start: lo, End: hi})
	}
	return out, nil
}
