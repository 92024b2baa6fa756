package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

CREATE TABLE IF NOT EXISTS migration_runs (
  id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
  strategy TEXT NOT NULL,
  status TEXT NOT NULL,
  progress_total BIGINT NOT NULL DEFAULT 0,
  progress_processed BIGINT NOT NULL DEFAULT 0,
  migrated_count BIGINT NOT NULL DEFAULT 0,
  skipped_count BIGINT NOT NULL DEFAULT 0,
  failed_count BIGINT NOT NULL DEFAULT 0,
  attempts INT NOT NULL DEFAULT 0,
  max_attempts INT NOT NULL DEFAULT 3,
  report JSONB,
  error_message TEXT,
  lease_owner TEXT,
  heartbeat_at TIMESTAMPTZ,
  lease_expires_at TIMESTAMPTZ,
  started_at TIMESTAMPTZ,
  finished_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  CHECK (status IN ('queued','running','succeeded','failed'))
);

ALTER TABLE migration_runs ADD COLUMN IF NOT EXISTS lease_owner TEXT;

CREATE INDEX IF NOT EXISTS idx_migration_runs_claim ON migration_runs (status, created_at);

CREATE TABLE IF NOT EXISTS migration_outcomes (
  id BIGSERIAL PRIMARY KEY,
  run_id UUID NOT NULL REFERENCES migration_runs(id) ON DELETE CASCADE,
  record_id BIGINT NOT NULL,
  email TEXT NOT NULL DEFAULT '',
  kind TEXT NOT NULL,
  target_id TEXT,
  reason TEXT,
  raw TEXT,
  recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  repaired_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_migration_outcomes_orphans
  ON migration_outcomes (run_id, record_id)
  WHERE kind = 'link_failed' AND repaired_at IS NULL;
`

// EnsureSchema creates the run queue and outcome ledger tables when missing.
func EnsureSchema(ctx context.Context, conn *gorm.DB) error {
	if err := conn.WithContext(ctx).Exec(schemaSQL).Error; err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
