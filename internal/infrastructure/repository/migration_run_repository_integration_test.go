package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
	"github.com/mohammadpnp/identity-migration/internal/infrastructure/db"
	"github.com/mohammadpnp/identity-migration/internal/infrastructure/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) (*gorm.DB, string) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect db: %v", err)
	}
	if err := db.EnsureSchema(context.Background(), conn); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	if err := conn.Exec("DELETE FROM migration_runs").Error; err != nil {
		t.Fatalf("failed to cleanup migration_runs: %v", err)
	}
	return conn, dsn
}

func TestMigrationRunRepositoryClaimAndLifecycleIntegration(t *testing.T) {
	conn, _ := openTestDB(t)
	ctx := context.Background()
	repo := repository.NewMigrationRunRepository(conn, 2)

	runID, err := repo.Enqueue(ctx, domain.StrategySelfSignupTemporary)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	claimed, err := repo.ClaimNext(ctx, 30*time.Second)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if claimed == nil || claimed.ID != runID {
		t.Fatalf("expected run %s to be claimed, got %+v", runID, claimed)
	}
	if claimed.Status != domain.RunStatusRunning || claimed.Attempts != 1 || claimed.MaxAttempts != 2 {
		t.Fatalf("unexpected claimed run: %+v", claimed)
	}
	if claimed.Strategy != domain.StrategySelfSignupTemporary {
		t.Fatalf("unexpected strategy: %s", claimed.Strategy)
	}
	if claimed.LeaseOwner == "" {
		t.Fatal("expected claim to set a lease owner")
	}
	lease := claimed.Lease()

	again, err := repo.ClaimNext(ctx, 30*time.Second)
	if err != nil {
		t.Fatalf("second claim failed: %v", err)
	}
	if again != nil {
		t.Fatalf("did not expect a leased run to be claimed again, got %s", again.ID)
	}

	if err := repo.Heartbeat(ctx, lease, 30*time.Second); err != nil {
		t.Fatalf("heartbeat failed: %v", err)
	}
	if err := repo.UpdateProgress(ctx, lease, domain.RunProgress{TotalRecords: 3, Processed: 2, Migrated: 1, Skipped: 1}); err != nil {
		t.Fatalf("update progress failed: %v", err)
	}

	report := domain.NewRunReport(domain.StrategySelfSignupTemporary, 10)
	report.Record(domain.Outcome{RecordID: 1, Kind: domain.OutcomeMigrated, TargetID: "t-1"})
	report.Record(domain.Outcome{RecordID: 2, Kind: domain.OutcomeLinkFailed, TargetID: "t-2", Reason: "timeout"})
	report.TotalRecords = 2
	report.Success = true
	if err := repo.Complete(ctx, lease, report); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	stored, err := repo.GetByID(ctx, runID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Status != domain.RunStatusSucceeded || stored.FinishedAt == nil {
		t.Fatalf("unexpected stored run: %+v", stored)
	}
	if stored.Report == nil || stored.Report.Migrated != 1 || stored.Report.OrphanCount != 1 {
		t.Fatalf("unexpected stored report: %+v", stored.Report)
	}

	if err := repo.Heartbeat(ctx, lease, 30*time.Second); !errors.Is(err, domain.ErrMigrationRunLeaseLost) {
		t.Fatalf("expected ErrMigrationRunLeaseLost after completion, got %v", err)
	}
}

func TestMigrationRunRepositoryRequeueAndFailIntegration(t *testing.T) {
	conn, _ := openTestDB(t)
	ctx := context.Background()
	repo := repository.NewMigrationRunRepository(conn, 2)

	runID, err := repo.Enqueue(ctx, domain.StrategyAdminCreateWithHash)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	first, err := repo.ClaimNext(ctx, time.Minute)
	if err != nil || first == nil {
		t.Fatalf("claim failed: %v", err)
	}

	if err := repo.Requeue(ctx, first.Lease(), "data layer unreachable"); err != nil {
		t.Fatalf("requeue failed: %v", err)
	}
	second, err := repo.ClaimNext(ctx, time.Minute)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if second == nil || second.ID != runID || second.Attempts != 2 {
		t.Fatalf("expected requeued run on its second attempt, got %+v", second)
	}
	if second.LeaseOwner == first.LeaseOwner {
		t.Fatal("expected a new lease owner on reclaim")
	}

	report := domain.NewRunReport(domain.StrategyAdminCreateWithHash, 10)
	report.FatalError = "data layer unreachable"
	if err := repo.Fail(ctx, second.Lease(), "data layer unreachable", report); err != nil {
		t.Fatalf("fail failed: %v", err)
	}

	stored, err := repo.GetByID(ctx, runID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Status != domain.RunStatusFailed || stored.Error != "data layer unreachable" {
		t.Fatalf("unexpected stored run: %+v", stored)
	}
	if stored.Report == nil || stored.Report.FatalError == "" {
		t.Fatalf("expected fatal report, got %+v", stored.Report)
	}
}

func TestMigrationRunRepositoryReleaseOnLastAttemptIntegration(t *testing.T) {
	conn, _ := openTestDB(t)
	ctx := context.Background()
	repo := repository.NewMigrationRunRepository(conn, 1)

	runID, err := repo.Enqueue(ctx, domain.StrategyAdminCreateWithHash)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	claimed, err := repo.ClaimNext(ctx, time.Minute)
	if err != nil || claimed == nil {
		t.Fatalf("claim failed: %v", err)
	}

	if err := repo.Release(ctx, claimed.Lease(), "worker stopped"); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	again, err := repo.ClaimNext(ctx, time.Minute)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if again == nil || again.ID != runID || again.Attempts != 1 {
		t.Fatalf("expected released run to be claimable on the same attempt, got %+v", again)
	}
}

func TestMigrationRunRepositoryFailsExpiredFinalAttemptIntegration(t *testing.T) {
	conn, _ := openTestDB(t)
	ctx := context.Background()
	repo := repository.NewMigrationRunRepository(conn, 1)

	runID, err := repo.Enqueue(ctx, domain.StrategyAdminCreateWithHash)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	// A worker that dies on its only attempt leaves the lease to expire.
	if _, err := repo.ClaimNext(ctx, -time.Second); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	next, err := repo.ClaimNext(ctx, time.Minute)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if next != nil {
		t.Fatalf("did not expect an exhausted run to be claimed, got %s", next.ID)
	}

	stored, err := repo.GetByID(ctx, runID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Status != domain.RunStatusFailed || stored.FinishedAt == nil || stored.Error == "" {
		t.Fatalf("expected exhausted run to be failed, got %+v", stored)
	}
}

func TestMigrationRunRepositoryRejectsStaleLeaseIntegration(t *testing.T) {
	conn, _ := openTestDB(t)
	ctx := context.Background()
	repo := repository.NewMigrationRunRepository(conn, 3)

	runID, err := repo.Enqueue(ctx, domain.StrategyAdminCreateWithHash)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	stale, err := repo.ClaimNext(ctx, -time.Second)
	if err != nil || stale == nil {
		t.Fatalf("claim failed: %v", err)
	}
	current, err := repo.ClaimNext(ctx, time.Minute)
	if err != nil || current == nil || current.ID != runID {
		t.Fatalf("expected expired run to be reclaimed, got %+v (%v)", current, err)
	}

	if err := repo.Heartbeat(ctx, stale.Lease(), time.Minute); !errors.Is(err, domain.ErrMigrationRunLeaseLost) {
		t.Fatalf("expected stale heartbeat to lose the lease, got %v", err)
	}
	report := domain.NewRunReport(domain.StrategyAdminCreateWithHash, 10)
	if err := repo.Complete(ctx, stale.Lease(), report); !errors.Is(err, domain.ErrMigrationRunLeaseLost) {
		t.Fatalf("expected stale complete to be rejected, got %v", err)
	}
	if err := repo.Requeue(ctx, stale.Lease(), "x"); !errors.Is(err, domain.ErrMigrationRunLeaseLost) {
		t.Fatalf("expected stale requeue to be rejected, got %v", err)
	}

	if err := repo.Heartbeat(ctx, current.Lease(), time.Minute); err != nil {
		t.Fatalf("expected current owner heartbeat to succeed, got %v", err)
	}
	stored, err := repo.GetByID(ctx, runID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Status != domain.RunStatusRunning || stored.Attempts != 2 {
		t.Fatalf("unexpected stored run: %+v", stored)
	}
}

func TestMigrationRunRepositoryGetByIDNotFoundIntegration(t *testing.T) {
	conn, _ := openTestDB(t)
	repo := repository.NewMigrationRunRepository(conn, 3)

	_, err := repo.GetByID(context.Background(), "0b6f7c2e-54a3-4d27-a7ad-9d8f0d1c2e3f")
	if !errors.Is(err, domain.ErrMigrationRunNotFound) {
		t.Fatalf("expected ErrMigrationRunNotFound, got %v", err)
	}
}
