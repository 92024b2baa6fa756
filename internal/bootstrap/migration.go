package bootstrap

import (
	"net/http"

	app "github.com/mohammadpnp/identity-migration/internal/application/migration"
	"github.com/mohammadpnp/identity-migration/internal/config"
	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
	"github.com/mohammadpnp/identity-migration/internal/infrastructure/authstore"
	"github.com/mohammadpnp/identity-migration/internal/infrastructure/graphql"
	"github.com/rs/zerolog"
)

type MigrationComponents struct {
	Strategy   domain.Strategy
	Employees  *graphql.EmployeeRepository
	Reconciler *app.Reconciler
	Migrator   *app.Migrator
}

// NewMigrationComponents wires the pipeline against the data layer and auth store.
// A nil source reads records from the data layer; links always go to the data layer.
func NewMigrationComponents(cfg config.Config, source domain.SourceReader, logger zerolog.Logger) (MigrationComponents, error) {
	strategy, err := cfg.MigrationStrategy()
	if err != nil {
		return MigrationComponents{}, err
	}

	httpClient := &http.Client{}

	graphQLClient := graphql.NewClient(cfg.DataLayer.GraphQLURL, cfg.DataLayer.AdminSecret, cfg.Migration.CallTimeout, httpClient)
	employees := graphql.NewEmployeeRepository(graphQLClient)
	if source == nil {
		source = employees
	}

	store := authstore.NewClient(authstore.Options{
		BaseURL:     cfg.AuthStore.BaseURL,
		AdminPath:   cfg.AuthStore.AdminPath,
		SignupPath:  cfg.AuthStore.SignupPath,
		AdminSecret: cfg.DataLayer.AdminSecret,
		Timeout:     cfg.Migration.CallTimeout,
	}, httpClient)

	provisioner := app.NewProvisioner(store, app.ProvisionerConfig{
		TemporaryPassword: cfg.Migration.TemporaryPassword,
		DefaultRole:       cfg.Migration.DefaultRole,
		RequireBcrypt:     cfg.Migration.RequireBcrypt,
		ExpectedHashCost:  cfg.Migration.ExpectedHashCost,
	})
	reconciler := app.NewReconciler(employees, app.ReconcilerConfig{
		Retries:   cfg.Migration.LinkRetries,
		RetryBase: cfg.Migration.LinkRetryBase,
	})
	migrator := app.NewMigrator(source, provisioner, reconciler, app.MigratorConfig{
		Strategy:        strategy,
		MaxErrorSamples: cfg.Migration.MaxErrorSamples,
	}, logger.With().Str("component", "migrator").Logger())

	return MigrationComponents{
		Strategy:   strategy,
		Employees:  employees,
		Reconciler: reconciler,
		Migrator:   migrator,
	}, nil
}
