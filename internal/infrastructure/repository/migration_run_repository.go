package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
	"github.com/mohammadpnp/identity-migration/internal/infrastructure/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MigrationRunRepository struct {
	db          *gorm.DB
	maxAttempts int
}

func NewMigrationRunRepository(db *gorm.DB, maxAttempts int) *MigrationRunRepository {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &MigrationRunRepository{db: db, maxAttempts: maxAttempts}
}

func (r *MigrationRunRepository) Enqueue(ctx context.Context, strategy domain.Strategy) (string, error) {
	run := models.MigrationRun{
		Strategy:    string(strategy),
		Status:      domain.RunStatusQueued,
		MaxAttempts: r.maxAttempts,
	}

	if err := r.db.WithContext(ctx).Create(&run).Error; err != nil {
		return "", fmt.Errorf("create migration run: %w", err)
	}

	return run.ID, nil
}

func (r *MigrationRunRepository) GetByID(ctx context.Context, runID string) (*domain.MigrationRun, error) {
	var row models.MigrationRun
	if err := r.db.WithContext(ctx).First(&row, "id = ?", runID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMigrationRunNotFound
		}
		return nil, fmt.Errorf("get migration run: %w", err)
	}
	return toDomainRun(row)
}

const exhaustedReason = "lease expired on the final attempt"

// ClaimNext takes the oldest queued run, or a running one whose lease expired, and
// leases it to the caller under a fresh owner token. Expired runs with no attempts
// left are failed first. It returns nil when nothing is claimable.
func (r *MigrationRunRepository) ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.MigrationRun, error) {
	var claimed *models.MigrationRun

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		err := tx.Model(&models.MigrationRun{}).
			Where("attempts >= max_attempts AND (status = ? OR (status = ? AND lease_expires_at < NOW()))",
				domain.RunStatusQueued, domain.RunStatusRunning).
			Updates(map[string]any{
				"status":           domain.RunStatusFailed,
				"error_message":    gorm.Expr("COALESCE(error_message, ?)", exhaustedReason),
				"lease_owner":      nil,
				"lease_expires_at": nil,
				"finished_at":      now,
				"updated_at":       now,
			}).Error
		if err != nil {
			return err
		}

		var row models.MigrationRun
		err = tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("(status = ? OR (status = ? AND lease_expires_at < NOW())) AND attempts < max_attempts",
				domain.RunStatusQueued, domain.RunStatusRunning).
			Order("created_at ASC").
			Take(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		updates := map[string]any{
			"status":           domain.RunStatusRunning,
			"attempts":         gorm.Expr("attempts + 1"),
			"lease_owner":      uuid.NewString(),
			"heartbeat_at":     now,
			"lease_expires_at": now.Add(leaseDuration),
			"started_at":       gorm.Expr("COALESCE(started_at, ?)", now),
			"updated_at":       now,
		}
		if err := tx.Model(&models.MigrationRun{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.First(&row, "id = ?", row.ID).Error; err != nil {
			return err
		}
		claimed = &row
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim migration run: %w", err)
	}
	if claimed == nil {
		return nil, nil
	}

	return toDomainRun(*claimed)
}

func (r *MigrationRunRepository) Heartbeat(ctx context.Context, lease domain.RunLease, leaseDuration time.Duration) error {
	now := time.Now().UTC()
	return r.updateLeased(ctx, lease, "heartbeat migration run", map[string]any{
		"heartbeat_at":     now,
		"lease_expires_at": now.Add(leaseDuration),
		"updated_at":       now,
	})
}

func (r *MigrationRunRepository) UpdateProgress(ctx context.Context, lease domain.RunLease, progress domain.RunProgress) error {
	return r.updateLeased(ctx, lease, "update migration run progress", map[string]any{
		"progress_total":     progress.TotalRecords,
		"progress_processed": progress.Processed,
		"migrated_count":     progress.Migrated,
		"skipped_count":      progress.Skipped,
		"failed_count":       progress.Failed,
		"updated_at":         time.Now().UTC(),
	})
}

func (r *MigrationRunRepository) Complete(ctx context.Context, lease domain.RunLease, report *domain.RunReport) error {
	return r.finish(ctx, lease, domain.RunStatusSucceeded, nil, report)
}

func (r *MigrationRunRepository) Fail(ctx context.Context, lease domain.RunLease, reason string, report *domain.RunReport) error {
	return r.finish(ctx, lease, domain.RunStatusFailed, &reason, report)
}

// Requeue hands the run back to the queue; the attempt it used stays counted.
func (r *MigrationRunRepository) Requeue(ctx context.Context, lease domain.RunLease, reason string) error {
	return r.updateLeased(ctx, lease, "requeue migration run", requeueUpdates(reason, gorm.Expr("attempts")))
}

// Release hands the run back without charging the attempt, for runs interrupted
// by a worker shutdown rather than by a failure.
func (r *MigrationRunRepository) Release(ctx context.Context, lease domain.RunLease, reason string) error {
	return r.updateLeased(ctx, lease, "release migration run", requeueUpdates(reason, gorm.Expr("GREATEST(attempts - 1, 0)")))
}

func requeueUpdates(reason string, attempts clause.Expr) map[string]any {
	return map[string]any{
		"status":           domain.RunStatusQueued,
		"attempts":         attempts,
		"error_message":    reason,
		"lease_owner":      nil,
		"lease_expires_at": nil,
		"updated_at":       time.Now().UTC(),
	}
}

// updateLeased applies updates only while the caller still holds the run's lease.
func (r *MigrationRunRepository) updateLeased(ctx context.Context, lease domain.RunLease, op string, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.MigrationRun{}).
		Where("id = ? AND status = ? AND lease_owner = ?", lease.RunID, domain.RunStatusRunning, lease.Owner).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrMigrationRunLeaseLost
	}
	return nil
}

func (r *MigrationRunRepository) finish(ctx context.Context, lease domain.RunLease, status string, reason *string, report *domain.RunReport) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":           status,
		"error_message":    reason,
		"lease_owner":      nil,
		"lease_expires_at": nil,
		"finished_at":      now,
		"updated_at":       now,
	}

	if report != nil {
		payload, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("encode run report: %w", err)
		}
		progress := domain.ProgressOf(report)
		updates["report"] = payload
		updates["progress_total"] = progress.TotalRecords
		updates["progress_processed"] = progress.Processed
		updates["migrated_count"] = progress.Migrated
		updates["skipped_count"] = progress.Skipped
		updates["failed_count"] = progress.Failed
	}

	return r.updateLeased(ctx, lease, "finish migration run as "+status, updates)
}

func toDomainRun(row models.MigrationRun) (*domain.MigrationRun, error) {
	run := &domain.MigrationRun{
		ID:          row.ID,
		Strategy:    domain.Strategy(row.Strategy),
		Status:      row.Status,
		Attempts:    row.Attempts,
		MaxAttempts: row.MaxAttempts,
		StartedAt:   row.StartedAt,
		FinishedAt:  row.FinishedAt,
		CreatedAt:   row.CreatedAt,
	}
	if row.ErrorMessage != nil {
		run.Error = *row.ErrorMessage
	}
	if row.LeaseOwner != nil {
		run.LeaseOwner = *row.LeaseOwner
	}

	if len(row.Report) > 0 {
		var report domain.RunReport
		if err := json.Unmarshal(row.Report, &report); err != nil {
			return nil, fmt.Errorf("decode run report: %w", err)
		}
		run.Report = &report
	}
	return run, nil
}
