package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"selectcms/adapters/sqlstore"
	"selectcms/internal/api"
	"selectcms/internal/errors"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recorded runs and their loci over HTTP",
		Long: `Start a read-only JSON API over the results database:

  GET /healthz
  GET /runs?limit=N
  GET /runs/{id}
  GET /runs/{id}/loci

Example: cms serve --db postgres://localhost/cms --port 8080`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationConfig: configServer},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx)
		},
	}

	cmd.Flags().String(flagDatabase, "", "Results database URL (postgres://... or sqlite://path)")
	cmd.Flags().String(flagPort, "", "Listen port (overrides PORT)")

	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	if a.cfg.Store.DatabaseURL == "" {
		return errors.ConfigInvalid("serve needs a database: set DATABASE_URL or --db")
	}
	repo, err := sqlstore.Open(ctx, a.cfg.Store.DatabaseURL)
	if err != nil {
		return err
	}
	defer repo.Close()

	addr := ":" + a.cfg.Server.Port
	a.logger.Info("serving runs on %s", addr)
	return api.NewServer(repo, a.logger).ListenAndServe(ctx, addr)
}
