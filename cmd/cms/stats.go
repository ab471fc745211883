package main

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"selectcms/adapters/stats/signals"
	"selectcms/adapters/tsv"
	"selectcms/domain/stats"
	"selectcms/internal/analysis"
	"selectcms/internal/errors"
	"selectcms/internal/runner"
)

// megabase converts the --window-size flag to base pairs
const megabase = 1_000_000

type statsOptions struct {
	tablesDir  string
	simsDir    string
	windowSize float64
	region     string
	windows    string
}

func newStatsCmd(a *app) *cobra.Command {
	opts := &statsOptions{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Score every window and write its composite stats file",
		Long: `Tile the scanned region into windows, run the five selection tests on each
window concurrently, combine them into product and mean composites and write
one stats file per window under <out>/stats_files.

A window that fails is logged with its failure code and skipped; the other
windows still complete.

Example: cms stats --tables scores/ --sims sims/ --window-size 0.5 --parallel 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStats(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.tablesDir, "tables", "", "Directory holding one score table per test")
	cmd.Flags().StringVar(&opts.simsDir, "sims", "", "Directory holding the neutral and selection simulations")
	cmd.Flags().Float64Var(&opts.windowSize, "window-size", 1, "Window size in megabases")
	cmd.Flags().StringVar(&opts.region, "region", "", "Scanned positions as start-end (default: extent of the score tables)")
	cmd.Flags().StringVar(&opts.windows, "windows", "", "Only process window numbers x-y")
	addCompositeFlags(cmd.Flags())
	addRunnerFlags(cmd.Flags())
	_ = cmd.MarkFlagRequired("tables")
	_ = cmd.MarkFlagRequired("sims")

	return cmd
}

func (a *app) runStats(ctx context.Context, opts *statsOptions) error {
	size := int(math.Round(opts.windowSize * megabase))
	if size <= 0 || size > analysis.MaxWindowSize {
		return errors.ConfigInvalid(fmt.Sprintf("window size must lie in (0, %d] megabases, got %g",
			analysis.MaxWindowSize/megabase, opts.windowSize))
	}

	dists, err := tsv.ReadSimulations(opts.simsDir)
	if err != nil {
		return errors.Wrap(err, "failed to load simulations")
	}
	a.logDistributions(dists)
	ac := a.cfg.Analysis
	composite, err := analysis.NewCompositeScorer(dists, analysis.CompositeOptions{
		DAFCutoff:     ac.DAFCutoff,
		GateMeanOnDAF: ac.GateMeanOnDAF,
		PriorOverride: ac.PriorOverride,
	})
	if err != nil {
		return err
	}

	tables := tsv.NewScoreTables(opts.tablesDir)
	scorers, err := tables.Scorers()
	if err != nil {
		return err
	}
	engine, err := signals.NewEngine(scorers...)
	if err != nil {
		return err
	}

	windows, err := a.planWindows(ctx, tables, opts, size)
	if err != nil {
		return err
	}
	if len(windows) == 0 {
		return errors.ConfigInvalid("no windows selected")
	}

	rc := a.cfg.Runner
	r := runner.New(
		runner.WithStagger(rc.Stagger),
		runner.WithTimeout(rc.WindowTimeout),
		runner.WithLogger(a.logger),
	)
	store := tsv.NewStore(a.outDir, a.logger)
	pipeline := analysis.NewWindowPipeline(r, engine, composite, store, a.logger)
	report, err := analysis.NewBatchRunner(pipeline, rc.ParallelWindows, a.logger).RunWindows(ctx, windows)
	if err != nil {
		return err
	}

	done := len(report.Succeeded())
	failed := report.Failures()
	fmt.Printf("Windows scored: %d\n", done)
	fmt.Printf("Windows failed: %d\n", len(failed))
	for _, f := range failed {
		fmt.Printf("  window %d: %s\n", f.Window, f.Code)
	}
	fmt.Printf("Stats files: %s\n", store.StatsDir())

	if done == 0 {
		return fmt.Errorf("all %d windows failed", len(failed))
	}
	return nil
}

func (a *app) planWindows(ctx context.Context, tables *tsv.ScoreTables, opts *statsOptions, size int) ([]signals.Window, error) {
	var start, end int
	var err error
	if opts.region != "" {
		start, end, err = tsv.ParseRange(opts.region)
		if err != nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("bad --region: %v", err))
		}
	} else {
		start, end, err = tables.Extent(ctx)
		if err != nil {
			return nil, err
		}
	}

	windows, err := analysis.PlanWindows(start, end, size)
	if err != nil {
		return nil, errors.ConfigInvalid(err.Error())
	}
	a.logger.Info("region %d-%d split into %d windows of %d bp", start, end, len(windows), size)

	if opts.windows == "" {
		return windows, nil
	}
	lo, hi, err := tsv.ParseRange(opts.windows)
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("bad --windows: %v", err))
	}
	var picked []signals.Window
	for _, w := range windows {
		if w.Number >= lo && w.Number <= hi {
			picked = append(picked, w)
		}
	}
	return picked, nil
}

func (a *app) logDistributions(dists *stats.DistributionSet) {
	for _, spec := range stats.AllTests {
		pair, ok := dists.Pair(spec.Kind)
		if !ok {
			continue
		}
		for _, d := range []struct {
			label string
			dist  *stats.EmpiricalDistribution
		}{{"neutral", pair.Neutral}, {"selection", pair.Selection}} {
			a.logger.Debug("%s %s simulations: n=%d range=[%g, %g] mean=%g",
				d.dist.Kind(), d.label, d.dist.Len(), d.dist.Min(), d.dist.Max(), d.dist.Mean())
		}
	}
}
