package runner

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"selectcms/adapters/stats/signals"
	"selectcms/domain/core"
	"selectcms/internal"
)

// Default scheduling values
const (
	DefaultStagger = 50 * time.Millisecond
	DefaultTimeout = 30 * time.Minute
)

// TestRunner runs every scorer of a window in parallel and waits for all of
// them. The first failure aborts the window; nothing is retried.
type TestRunner struct {
	stagger time.Duration
	timeout time.Duration
	logger  *internal.Logger
}

// Option configures a TestRunner
type Option func(*TestRunner)

// WithStagger sets the delay between scorer launches. It only spreads out
// start-up I/O; it is not an ordering guarantee.
func WithStagger(d time.Duration) Option {
	return func(r *TestRunner) { r.stagger = d }
}

// WithTimeout bounds the wait for the whole window
func WithTimeout(d time.Duration) Option {
	return func(r *TestRunner) { r.timeout = d }
}

// WithLogger sets the logger
func WithLogger(l *internal.Logger) Option {
	return func(r *TestRunner) { r.logger = l }
}

// New creates a runner with the default stagger and timeout
func New(opts ...Option) *TestRunner {
	r := &TestRunner{
		stagger: DefaultStagger,
		timeout: DefaultTimeout,
		logger:  internal.DefaultLogger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type scorerJob struct {
	name     string
	duration time.Duration
	snps     int
	err      error
}

// Run launches one goroutine per scorer and blocks until every scorer has
// returned, one has failed, or the timeout expires. Results are returned in
// scorer order.
func (r *TestRunner) Run(ctx context.Context, win signals.Window, scorers []signals.Scorer) ([]signals.Result, error) {
	if len(scorers) == 0 {
		return nil, fmt.Errorf("%w: no scorers configured", core.ErrInsufficientData)
	}

	logger := r.logger.Window(win.Number)
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	results := make([]signals.Result, len(scorers))
	jobs := make(chan scorerJob, len(scorers))
	g, gCtx := errgroup.WithContext(runCtx)

	launched := 0
	for i, scorer := range scorers {
		if i > 0 && r.stagger > 0 {
			select {
			case <-time.After(r.stagger):
			case <-gCtx.Done():
			}
		}
		if gCtx.Err() != nil {
			break
		}

		launched++
		g.Go(func() (err error) {
			start := time.Now()
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("%s: %w: panic: %v", scorer.Name(), core.ErrComputation, p)
				}
				job := scorerJob{name: scorer.Name(), duration: time.Since(start), snps: len(results[i].Scores), err: err}
				jobs <- job
			}()

			res, err := scorer.Score(gCtx, win)
			if err != nil {
				return err
			}
			res.Kind = scorer.Spec().Kind
			results[i] = res
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	finished := 0
	for finished < launched {
		select {
		case job := <-jobs:
			finished++
			if job.err != nil {
				if runCtx.Err() != nil {
					return nil, r.contextError(ctx)
				}
				logger.Warn("%s failed after %v: %v", job.name, job.duration, job.err)
				cancel()
				return nil, job.err
			}
			logger.Debug("%s scored %d SNPs in %v", job.name, job.snps, job.duration)
		case <-runCtx.Done():
			return nil, r.contextError(ctx)
		}
	}

	// every launched scorer reported success; Wait cannot block past this point
	if err := <-done; err != nil {
		return nil, err
	}
	if launched < len(scorers) {
		return nil, r.contextError(ctx)
	}
	return results, nil
}

func (r *TestRunner) contextError(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w after %v: %w", core.ErrWindowTimeout, r.timeout, context.DeadlineExceeded)
}
