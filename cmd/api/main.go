package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mohammadpnp/identity-migration/internal/application/account"
	"github.com/mohammadpnp/identity-migration/internal/application/migration"
	"github.com/mohammadpnp/identity-migration/internal/bootstrap"
	"github.com/mohammadpnp/identity-migration/internal/config"
	"github.com/mohammadpnp/identity-migration/internal/infrastructure/db"
	"github.com/mohammadpnp/identity-migration/internal/infrastructure/lock"
	"github.com/mohammadpnp/identity-migration/internal/infrastructure/repository"
	httpecho "github.com/mohammadpnp/identity-migration/internal/interfaces/http/echo"
	"github.com/mohammadpnp/identity-migration/internal/observability"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load(".env", ".env.local")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := observability.InitLogger("identity-migration-api", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	conn, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	if cfg.EnsureSchema {
		if err := db.EnsureSchema(context.Background(), conn); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare schema")
		}
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create pgx pool")
	}
	defer pool.Close()

	components, err := bootstrap.NewMigrationComponents(cfg, nil, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build migration pipeline")
	}

	runRepo := repository.NewMigrationRunRepository(conn, cfg.Worker.MaxAttempts)
	ledger := repository.NewOutcomeLedgerRepository(pool)

	runLock, closeLock := newRunLock(cfg, logger)
	defer closeLock()

	migrationHandler := httpecho.NewMigrationHandler(
		migration.NewStartMigrationRun(runRepo, components.Strategy),
		migration.NewGetMigrationRun(runRepo),
		migration.NewRepairLinks(ledger, components.Reconciler, cfg.Migration.MaxErrorSamples, logger),
	)
	tokens := account.NewTokenIssuer(cfg.Token.Secret, cfg.Token.Issuer, cfg.Token.Expiration)
	accountHandler := httpecho.NewAccountHandler(
		account.NewLogin(components.Employees, tokens),
		account.NewChangePassword(components.Employees, cfg.Token.BcryptCost),
		tokens,
	)
	server := bootstrap.NewHTTPServer(logger, migrationHandler, accountHandler)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	worker := migration.NewRunWorker(runRepo, ledger, components.Migrator, runLock, migration.RunWorkerConfig{
		PollInterval:    cfg.Worker.PollInterval,
		LeaseDuration:   cfg.Worker.LeaseDuration,
		LedgerChunkSize: cfg.Worker.LedgerChunkSize,
	}, logger.With().Str("component", "run_worker").Logger())
	if cfg.Worker.Enabled {
		worker.Start(workerCtx)
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := server.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if cfg.Worker.Enabled {
		select {
		case <-worker.Done():
		case <-ctx.Done():
			logger.Warn().Msg("worker did not stop before shutdown deadline")
		}
	}
}

// newRunLock falls back to an in-process lock when REDIS_URL is unset, which is
// only safe with a single replica.
func newRunLock(cfg config.Config, logger zerolog.Logger) (migration.RunLock, func()) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set, migration runs are not coordinated across replicas")
		return migration.NoopLock{}, func() {}
	}

	client, err := lock.NewClient(context.Background(), cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	return lock.NewRedisLock(client, cfg.Worker.LockKey), func() { _ = client.Close() }
}
