package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"selectcms/internal"
	"selectcms/internal/config"
	"selectcms/internal/errors"
)

// app carries what every subcommand needs once the root has loaded config
type app struct {
	cfg    *config.Config
	logger *internal.Logger
	outDir string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "cms",
		Short: "Composite of Multiple Signals selection scan",
		Long: `Scores genomic windows with five selection tests, combines them into
product and mean composites, and reports the loci that stand out.

Settings come from the environment (and an optional .env file); flags override them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.outDir, "out", "o", ".", "Output directory holding stats_files/ and final_out/")
	rootCmd.PersistentFlags().String("log-level", "", "ERROR|WARN|INFO|DEBUG|TRACE (overrides LOG_LEVEL)")

	rootCmd.AddCommand(
		newStatsCmd(a),
		newCombineCmd(a),
		newAnalyzeCmd(a),
		newServeCmd(a),
		newMigrateCmd(a),
	)
	return rootCmd
}

// Commands name the settings they depend on with this annotation. Without it
// the analysis and runner settings are validated.
const (
	annotationConfig = "config"
	configServer     = "server"
	configNone       = "none"
)

// setup loads configuration, applies flag overrides and validates the result
// once, before any work starts
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	switch cmd.Annotations[annotationConfig] {
	case configNone:
	case configServer:
		err = cfg.ValidateServer()
	default:
		err = cfg.Validate()
	}
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	if cfg.Runner.MemoryLimitMB > 0 {
		debug.SetMemoryLimit(int64(cfg.Runner.MemoryLimitMB) << 20)
		a.logger.Debug("memory limit set to %d MiB", cfg.Runner.MemoryLimitMB)
	}
	return nil
}
