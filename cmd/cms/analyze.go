package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"selectcms/adapters/excel"
	"selectcms/adapters/sqlstore"
	"selectcms/adapters/tsv"
	"selectcms/domain/core"
	"selectcms/domain/run"
	"selectcms/domain/stats"
	"selectcms/internal/analysis"
	"selectcms/internal/errors"
	"selectcms/ports"
)

type analyzeOptions struct {
	windows string
	policy  string
	xlsx    string
}

func newAnalyzeCmd(a *app) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Select the significant loci from the window stats files",
		Long: `Read the window stats files under <out>/stats_files, optionally standardize
the composites over the whole run, and write every locus whose standardized
composites clear the cutoff for --p-value to <out>/final_out.

The policy decides which composites must pass: both (default), product, mean
or either. --ignore-mop and --ignore-pop pick it when --policy is not given.

With --db the run and its loci are recorded in the results database; with
--xlsx the loci are also exported as a workbook.

Example: cms analyze --p-value 0.001 --run-norm --db sqlite://cms.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.windows, "windows", "", "Only analyze window numbers x-y")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "both|product|mean|either (overrides the ignore flags)")
	cmd.Flags().StringVar(&opts.xlsx, "xlsx", "", "Also export the loci to this workbook")
	cmd.Flags().String(flagDatabase, "", "Results database URL (postgres://... or sqlite://path)")
	addSelectionFlags(cmd.Flags())
	// recorded in the run fingerprint
	addCompositeFlags(cmd.Flags())

	return cmd
}

func (a *app) runAnalyze(ctx context.Context, opts *analyzeOptions) error {
	ac := a.cfg.Analysis
	policy := analysis.PolicyFromFlags(ac.IgnoreMoP, ac.IgnorePoP)
	if opts.policy != "" {
		p, err := analysis.ParsePolicy(opts.policy)
		if err != nil {
			return errors.ConfigInvalid(err.Error())
		}
		policy = p
	}
	selector, err := analysis.NewSignificanceSelector(ac.PValue, policy)
	if err != nil {
		return errors.ConfigInvalid(err.Error())
	}

	store := tsv.NewStore(a.outDir, a.logger)
	windows, err := a.readWindows(store, opts.windows)
	if err != nil {
		return err
	}
	if len(windows) == 0 {
		return fmt.Errorf("%w: no window stats files in %s", core.ErrNotFound, store.StatsDir())
	}

	result := analysis.NewAnalyzer(selector, ac.PooledNorm, a.logger).Analyze(windows)
	path, err := store.WriteLoci(result.Loci)
	if err != nil {
		return errors.Wrap(err, "failed to write significant loci")
	}

	fmt.Printf("Windows analyzed: %d\n", result.Windows)
	fmt.Printf("Z cutoff: %.4f (p=%g, policy=%s)\n", result.Cutoff, ac.PValue, policy)
	fmt.Printf("Significant loci: %d\n", len(result.Loci))
	fmt.Printf("Loci file: %s\n", path)

	if opts.xlsx != "" {
		var exporter ports.LociExporter = excel.NewExporter()
		if err := exporter.ExportLoci(opts.xlsx, result.Loci); err != nil {
			return errors.Wrap(err, "failed to export workbook")
		}
		fmt.Printf("Workbook: %s\n", opts.xlsx)
	}

	if a.cfg.Store.DatabaseURL == "" {
		return nil
	}
	return a.recordRun(ctx, store, windows, result, policy, path)
}

func (a *app) readWindows(store *tsv.Store, windows string) ([]*stats.WindowStats, error) {
	if windows == "" {
		return store.ReadWindows()
	}
	lo, hi, err := tsv.ParseRange(windows)
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("bad --windows: %v", err))
	}
	return store.ReadRange(lo, hi)
}

func (a *app) recordRun(ctx context.Context, store *tsv.Store, windows []*stats.WindowStats, result analysis.AnalysisResult, policy analysis.Policy, path string) error {
	ac := a.cfg.Analysis
	params := run.Parameters{
		PValue:        ac.PValue,
		Policy:        string(policy),
		DAFCutoff:     ac.DAFCutoff,
		GateMeanOnDAF: ac.GateMeanOnDAF,
		Prior:         ac.PriorOverride,
		Pooled:        result.Pooled,
		Inputs:        store.StatsDir(),
	}
	span, missing := windowGaps(windows)
	rn := run.Run{
		ID:            core.NewRunID(),
		CreatedAt:     core.Now(),
		PValue:        ac.PValue,
		ZCutoff:       result.Cutoff,
		Policy:        string(policy),
		Pooled:        result.Pooled,
		WindowCount:   span,
		FailedWindows: missing,
		LociCount:     len(result.Loci),
		OutputPath:    path,
		Fingerprint:   params.Fingerprint(),
	}

	repo, err := sqlstore.Open(ctx, a.cfg.Store.DatabaseURL)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.SaveRun(ctx, rn, result.Loci); err != nil {
		return err
	}
	fmt.Printf("Run recorded: %s\n", rn.ID)
	return nil
}

// windowGaps returns how many window numbers the analyzed files span and how
// many numbers inside that span have no file, which is where stats skipped a
// failed window.
func windowGaps(windows []*stats.WindowStats) (span, missing int) {
	if len(windows) == 0 {
		return 0, 0
	}
	lo, hi := windows[0].Number, windows[0].Number
	for _, ws := range windows[1:] {
		lo = min(lo, ws.Number)
		hi = max(hi, ws.Number)
	}
	span = hi - lo + 1
	return span, span - len(windows)
}
