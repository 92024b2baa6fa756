package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
)

const graphQLPathSuffix = "/v1/graphql"

type DataLayerOptions struct {
	GraphQLURL  string `env:"NHOST_GRAPHQL_URL"`
	AdminSecret string `env:"NHOST_ADMIN_SECRET"`
}

type AuthStoreOptions struct {
	BaseURL    string `env:"NHOST_AUTH_URL"`
	AdminPath  string `env:"NHOST_AUTH_ADMIN_PATH" envDefault:"/v1/auth/admin/users"`
	SignupPath string `env:"NHOST_AUTH_SIGNUP_PATH" envDefault:"/v1/auth/signup/email-password"`
}

type MigrationOptions struct {
	Strategy          string        `env:"MIGRATION_STRATEGY" envDefault:"admin_create"`
	TemporaryPassword string        `env:"MIGRATION_TEMP_PASSWORD"`
	DefaultRole       string        `env:"MIGRATION_DEFAULT_ROLE" envDefault:"user"`
	RequireBcrypt     bool          `env:"MIGRATION_REQUIRE_BCRYPT" envDefault:"true"`
	ExpectedHashCost  int           `env:"MIGRATION_HASH_COST" envDefault:"0"`
	CallTimeout       time.Duration `env:"MIGRATION_CALL_TIMEOUT" envDefault:"15s"`
	MaxErrorSamples   int           `env:"MIGRATION_MAX_ERROR_SAMPLES" envDefault:"100"`
	LinkRetries       uint64        `env:"MIGRATION_LINK_RETRIES" envDefault:"3"`
	LinkRetryBase     time.Duration `env:"MIGRATION_LINK_RETRY_BASE" envDefault:"250ms"`
}

type WorkerOptions struct {
	Enabled         bool          `env:"MIGRATION_WORKER_ENABLED" envDefault:"true"`
	PollInterval    time.Duration `env:"MIGRATION_POLL_INTERVAL" envDefault:"2s"`
	LeaseDuration   time.Duration `env:"MIGRATION_LEASE_DURATION" envDefault:"60s"`
	MaxAttempts     int           `env:"MIGRATION_MAX_ATTEMPTS" envDefault:"3"`
	LedgerChunkSize int           `env:"MIGRATION_LEDGER_CHUNK_SIZE" envDefault:"500"`
	LockKey         string        `env:"MIGRATION_LOCK_KEY" envDefault:"identity-migration:run-lock"`
}

type TokenOptions struct {
	Secret     string        `env:"JWT_SECRET"`
	Issuer     string        `env:"JWT_ISSUER" envDefault:"employee-directory"`
	Expiration time.Duration `env:"JWT_EXPIRATION" envDefault:"24h"`
	BcryptCost int           `env:"PASSWORD_BCRYPT_COST" envDefault:"15"`
}

type Config struct {
	DataLayer DataLayerOptions
	AuthStore AuthStoreOptions
	Migration MigrationOptions
	Worker    WorkerOptions
	Token     TokenOptions

	DatabaseURL  string `env:"DATABASE_URL"`
	EnsureSchema bool   `env:"DATABASE_ENSURE_SCHEMA" envDefault:"true"`
	RedisURL     string `env:"REDIS_URL"`
	Port         string `env:"PORT" envDefault:"8080"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the optional env files first so real environment variables win.
func Load(envFiles ...string) (Config, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return Config{}, fmt.Errorf("load env files: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.AuthStore.BaseURL == "" {
		cfg.AuthStore.BaseURL = deriveAuthBaseURL(cfg.DataLayer.GraphQLURL)
	}
	cfg.AuthStore.BaseURL = strings.TrimRight(cfg.AuthStore.BaseURL, "/")

	return cfg, nil
}

func (c Config) MigrationStrategy() (domain.Strategy, error) {
	return domain.ParseStrategy(c.Migration.Strategy)
}

// ValidateMigration checks everything a migration run needs before any network call.
func (c Config) ValidateMigration() error {
	var missing []string
	if strings.TrimSpace(c.DataLayer.GraphQLURL) == "" {
		missing = append(missing, "NHOST_GRAPHQL_URL")
	}
	if strings.TrimSpace(c.DataLayer.AdminSecret) == "" {
		missing = append(missing, "NHOST_ADMIN_SECRET")
	}
	if strings.TrimSpace(c.AuthStore.BaseURL) == "" {
		missing = append(missing, "NHOST_AUTH_URL")
	}

	strategy, err := c.MigrationStrategy()
	if err != nil {
		return err
	}
	if strategy == domain.StrategySelfSignupTemporary && c.Migration.TemporaryPassword == "" {
		missing = append(missing, "MIGRATION_TEMP_PASSWORD")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfigMissing, strings.Join(missing, ", "))
	}
	return nil
}

// Validate checks the full service configuration.
func (c Config) Validate() error {
	if err := c.ValidateMigration(); err != nil {
		return err
	}

	var missing []string
	if strings.TrimSpace(c.Token.Secret) == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfigMissing, strings.Join(missing, ", "))
	}
	return nil
}

func deriveAuthBaseURL(graphQLURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(graphQLURL), "/")
	if !strings.HasSuffix(trimmed, graphQLPathSuffix) {
		return ""
	}
	return strings.TrimSuffix(trimmed, graphQLPathSuffix)
}
