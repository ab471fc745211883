package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"selectcms/adapters/sqlstore"
	"selectcms/adapters/sqlstore/migrations"
	"selectcms/internal/errors"
)

func newMigrateCmd(a *app) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending results database migrations",
		Long: `Bring the results database schema up to date. analyze and serve do this on
their own; run it ahead of time to prepare a shared database or, with
--status, to see which migrations have been applied.

Example: cms migrate --db postgres://localhost/cms --status`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationConfig: configNone},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMigrate(cmd.Context(), status)
		},
	}

	cmd.Flags().String(flagDatabase, "", "Results database URL (postgres://... or sqlite://path)")
	cmd.Flags().BoolVar(&status, "status", false, "List migrations instead of applying them")

	return cmd
}

func (a *app) runMigrate(ctx context.Context, status bool) error {
	if a.cfg.Store.DatabaseURL == "" {
		return errors.ConfigInvalid("migrate needs a database: set DATABASE_URL or --db")
	}
	db, err := sqlstore.Connect(ctx, a.cfg.Store.DatabaseURL)
	if err != nil {
		return errors.DatabaseError("failed to connect", err)
	}
	defer db.Close()

	m := migrations.NewMigrator(db)
	if status {
		list, err := m.Status(ctx)
		if err != nil {
			return errors.DatabaseError("failed to read migration status", err)
		}
		for _, s := range list {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%s  %-24s %s\n", s.Version, s.Name, state)
		}
		return nil
	}

	applied, err := m.Up(ctx)
	if err != nil {
		return errors.DatabaseError("migration failed", err)
	}
	if len(applied) == 0 {
		fmt.Println("Schema is up to date")
		return nil
	}
	for _, v := range applied {
		fmt.Printf("Applied %s\n", v)
	}
	return nil
}
