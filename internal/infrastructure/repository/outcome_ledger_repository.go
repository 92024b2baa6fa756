package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
)

type OutcomeLedgerRepository struct {
	pool *pgxpool.Pool
}

func NewOutcomeLedgerRepository(pool *pgxpool.Pool) *OutcomeLedgerRepository {
	return &OutcomeLedgerRepository{pool: pool}
}

func (r *OutcomeLedgerRepository) AppendOutcomes(ctx context.Context, runID string, outcomes []domain.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []any{
			runID,
			o.RecordID,
			o.Email,
			string(o.Kind),
			nullableText(o.TargetID),
			nullableText(o.Reason),
			nullableText(o.Raw),
		})
	}

	if _, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"migration_outcomes"},
		[]string{"run_id", "record_id", "email", "kind", "target_id", "reason", "raw"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy migration outcomes: %w", err)
	}
	return nil
}

// ListOrphans returns link failures of a run that have not been repaired yet, one
// row per record.
func (r *OutcomeLedgerRepository) ListOrphans(ctx context.Context, runID string, limit int) ([]domain.LedgerOrphan, error) {
	rows, err := r.pool.Query(ctx, `
SELECT DISTINCT ON (record_id) record_id, target_id, COALESCE(reason, '')
FROM migration_outcomes
WHERE run_id = $1
  AND kind = $2
  AND repaired_at IS NULL
  AND target_id IS NOT NULL
ORDER BY record_id, recorded_at DESC
LIMIT $3
`, runID, string(domain.OutcomeLinkFailed), limit)
	if err != nil {
		return nil, fmt.Errorf("list orphans: %w", err)
	}
	defer rows.Close()

	orphans := make([]domain.LedgerOrphan, 0)
	for rows.Next() {
		orphan := domain.LedgerOrphan{RunID: runID}
		if err := rows.Scan(&orphan.RecordID, &orphan.TargetID, &orphan.Reason); err != nil {
			return nil, fmt.Errorf("scan orphan: %w", err)
		}
		orphans = append(orphans, orphan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orphans: %w", err)
	}
	return orphans, nil
}

func (r *OutcomeLedgerRepository) MarkRepaired(ctx context.Context, runID string, recordID int64) error {
	_, err := r.pool.Exec(ctx, `
UPDATE migration_outcomes
SET repaired_at = NOW()
WHERE run_id = $1 AND record_id = $2 AND kind = $3 AND repaired_at IS NULL
`, runID, recordID, string(domain.OutcomeLinkFailed))
	if err != nil {
		return fmt.Errorf("mark orphan repaired: %w", err)
	}
	return nil
}

func nullableText(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
