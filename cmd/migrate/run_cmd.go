package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	app "github.com/mohammadpnp/identity-migration/internal/application/migration"
	"github.com/mohammadpnp/identity-migration/internal/bootstrap"
	"github.com/mohammadpnp/identity-migration/internal/config"
	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
	"github.com/mohammadpnp/identity-migration/internal/infrastructure/file"
	"github.com/mohammadpnp/identity-migration/internal/observability"
	"github.com/spf13/cobra"
)

var errRunIncomplete = errors.New("migration run did not complete")

type runOptions struct {
	Strategy      string
	SourceFile    string
	Pretty        bool
	RequireBcrypt bool
}

func newRunCmd(global *globalOptions) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [--strategy admin_create|self_signup] [--source-file export.json]",
		Short: "Run one migration pass and print the run report as JSON",
		Long: `Run one migration pass and print the run report as JSON.

With admin_create, password hashes are forwarded only when they parse as bcrypt
(MIGRATION_REQUIRE_BCRYPT, default true) and, when MIGRATION_HASH_COST is set,
carry that cost. Other hashes are reported as skipped_incompatible_hash.
Pass --require-bcrypt=false to forward every non-empty hash unchecked.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(global.EnvFiles...)
			if err != nil {
				return err
			}
			if strings.TrimSpace(opts.Strategy) != "" {
				cfg.Migration.Strategy = opts.Strategy
			}
			if cmd.Flags().Changed("require-bcrypt") {
				cfg.Migration.RequireBcrypt = opts.RequireBcrypt
			}
			if err := cfg.ValidateMigration(); err != nil {
				return err
			}

			logger := observability.InitConsoleLogger("identity-migration", logLevel(global, cfg))

			var source domain.SourceReader
			if strings.TrimSpace(opts.SourceFile) != "" {
				source = file.NewLocalSource(".", opts.SourceFile)
			}

			components, err := bootstrap.NewMigrationComponents(cfg, source, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, runErr := components.Migrator.Run(ctx, app.RunOptions{})

			enc := json.NewEncoder(cmd.OutOrStdout())
			if opts.Pretty {
				enc.SetIndent("", "  ")
			}
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			if runErr != nil {
				return fmt.Errorf("%w: %v", errRunIncomplete, runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Strategy, "strategy", "", "provisioning strategy, overrides MIGRATION_STRATEGY")
	cmd.Flags().StringVar(&opts.SourceFile, "source-file", "", "read legacy records from a JSON export instead of the data layer")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "indent the report")
	cmd.Flags().BoolVar(&opts.RequireBcrypt, "require-bcrypt", true, "only forward bcrypt hashes, overrides MIGRATION_REQUIRE_BCRYPT")
	return cmd
}

func logLevel(global *globalOptions, cfg config.Config) string {
	if global.LogLevel != "" {
		return global.LogLevel
	}
	return cfg.LogLevel
}
