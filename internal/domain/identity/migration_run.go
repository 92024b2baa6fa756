package identity

import "time"

const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

type MigrationRun struct {
	ID          string
	Strategy    Strategy
	Status      string
	Attempts    int
	MaxAttempts int
	LeaseOwner  string
	Report      *RunReport
	Error       string
	StartedAt   *time.Time
	FinishedAt  *time.Time
	CreatedAt   time.Time
}

// RunLease identifies one claim of a run. Updates made under a lease that has
// since been taken over by another worker are rejected with ErrMigrationRunLeaseLost.
type RunLease struct {
	RunID string
	Owner string
}

func (r MigrationRun) Lease() RunLease {
	return RunLease{RunID: r.ID, Owner: r.LeaseOwner}
}

type RunProgress struct {
	TotalRecords int64
	Processed    int64
	Migrated     int64
	Skipped      int64
	Failed       int64
}

func ProgressOf(r *RunReport) RunProgress {
	return RunProgress{
		TotalRecords: int64(r.TotalRecords),
		Processed:    int64(r.Processed),
		Migrated:     int64(r.Migrated),
		Skipped:      int64(r.Skipped),
		Failed:       int64(r.Failed),
	}
}

type LedgerOrphan struct {
	RunID    string
	RecordID int64
	TargetID string
	Reason   string
}
