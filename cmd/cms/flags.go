package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"selectcms/internal/config"
)

// Flag names shared between commands and the config overrides
const (
	flagLogLevel      = "log-level"
	flagPValue        = "p-value"
	flagDAFCutoff     = "daf-cutoff"
	flagGateMoP       = "gate-mop-daf"
	flagPrior         = "prior"
	flagIgnoreMoP     = "ignore-mop"
	flagIgnorePoP     = "ignore-pop"
	flagRunNorm       = "run-norm"
	flagWindowTimeout = "window-timeout"
	flagStagger       = "stagger"
	flagParallel      = "parallel"
	flagMemoryLimit   = "memory-limit-mb"
	flagDatabase      = "db"
	flagPort          = "port"
)

func addCompositeFlags(fs *pflag.FlagSet) {
	fs.Float64(flagDAFCutoff, config.DefaultDAFCutoff, "Minimum derived allele frequency for a product composite")
	fs.Bool(flagGateMoP, true, "Apply the DAF cutoff to the mean composite too")
	fs.Float64(flagPrior, 0, "Prior probability of selection (0 means 1/N SNPs in the window)")
}

func addSelectionFlags(fs *pflag.FlagSet) {
	fs.Float64(flagPValue, config.DefaultPValue, "Significance level for the standardized composites")
	fs.Bool(flagIgnoreMoP, false, "Select on the product composite alone")
	fs.Bool(flagIgnorePoP, false, "Select on the mean composite alone")
	fs.Bool(flagRunNorm, false, "Standardize composites over all windows instead of per window")
}

func addRunnerFlags(fs *pflag.FlagSet) {
	fs.Duration(flagWindowTimeout, config.DefaultWindowTimeout, "Deadline for all tests of one window")
	fs.Duration(flagStagger, config.DefaultStagger, "Delay between launching consecutive tests")
	fs.Int(flagParallel, 1, "Windows processed concurrently")
	fs.Int(flagMemoryLimit, 0, "Soft memory limit in MiB (0 leaves the runtime default)")
}

// applyFlags copies every flag the user set explicitly onto cfg. Flags left at
// their defaults never mask environment settings.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	var err error
	set := func(name string, apply func() error) {
		if err != nil {
			return
		}
		if f := fs.Lookup(name); f != nil && f.Changed {
			err = apply()
		}
	}

	set(flagLogLevel, func() (e error) { cfg.LogLevel, e = fs.GetString(flagLogLevel); return })
	set(flagPValue, func() (e error) { cfg.Analysis.PValue, e = fs.GetFloat64(flagPValue); return })
	set(flagDAFCutoff, func() (e error) { cfg.Analysis.DAFCutoff, e = fs.GetFloat64(flagDAFCutoff); return })
	set(flagGateMoP, func() (e error) { cfg.Analysis.GateMeanOnDAF, e = fs.GetBool(flagGateMoP); return })
	set(flagPrior, func() (e error) { cfg.Analysis.PriorOverride, e = fs.GetFloat64(flagPrior); return })
	set(flagIgnoreMoP, func() (e error) { cfg.Analysis.IgnoreMoP, e = fs.GetBool(flagIgnoreMoP); return })
	set(flagIgnorePoP, func() (e error) { cfg.Analysis.IgnorePoP, e = fs.GetBool(flagIgnorePoP); return })
	set(flagRunNorm, func() (e error) { cfg.Analysis.PooledNorm, e = fs.GetBool(flagRunNorm); return })
	set(flagWindowTimeout, func() (e error) { cfg.Runner.WindowTimeout, e = fs.GetDuration(flagWindowTimeout); return })
	set(flagStagger, func() (e error) { cfg.Runner.Stagger, e = fs.GetDuration(flagStagger); return })
	set(flagParallel, func() (e error) { cfg.Runner.ParallelWindows, e = fs.GetInt(flagParallel); return })
	set(flagMemoryLimit, func() (e error) { cfg.Runner.MemoryLimitMB, e = fs.GetInt(flagMemoryLimit); return })
	set(flagDatabase, func() (e error) { cfg.Store.DatabaseURL, e = fs.GetString(flagDatabase); return })
	set(flagPort, func() (e error) { cfg.Server.Port, e = fs.GetString(flagPort); return })
	return err
}
