package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	app "github.com/mohammadpnp/identity-migration/internal/application/migration"
	"github.com/mohammadpnp/identity-migration/internal/bootstrap"
	"github.com/mohammadpnp/identity-migration/internal/config"
	"github.com/mohammadpnp/identity-migration/internal/infrastructure/repository"
	"github.com/mohammadpnp/identity-migration/internal/observability"
	"github.com/spf13/cobra"
)

func newRepairCmd(global *globalOptions) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "repair --run-id <uuid>",
		Short: "Re-issue link mutations for orphaned identities recorded in a run's ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(runID) == "" {
				return errors.New("--run-id is required")
			}

			cfg, err := config.Load(global.EnvFiles...)
			if err != nil {
				return err
			}
			if err := cfg.ValidateMigration(); err != nil {
				return err
			}
			if strings.TrimSpace(cfg.DatabaseURL) == "" {
				return errors.New("DATABASE_URL is required to read the outcome ledger")
			}

			logger := observability.InitConsoleLogger("identity-migration", logLevel(global, cfg))

			components, err := bootstrap.NewMigrationComponents(cfg, nil, logger)
			if err != nil {
				return err
			}

			pool, err := pgxpool.New(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("create pgx pool: %w", err)
			}
			defer pool.Close()

			repair := app.NewRepairLinks(repository.NewOutcomeLedgerRepository(pool), components.Reconciler, cfg.Migration.MaxErrorSamples, logger)
			out, err := repair.Execute(cmd.Context(), app.RepairLinksInput{RunID: runID})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "migration run whose orphans should be relinked")
	return cmd
}
