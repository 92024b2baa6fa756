package identity

import "context"

type SourceReader interface {
	FetchUnmigratedRecords(ctx context.Context) ([]LegacyRecord, error)
}

type LinkWriter interface {
	LinkIdentity(ctx context.Context, legacyID int64, targetID string) error
}

type EmployeeDirectory interface {
	FindByContactNumber(ctx context.Context, contact string) (*Employee, error)
	FindByID(ctx context.Context, id int64) (*Employee, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

type MigrationRunRepository interface {
	Enqueue(ctx context.Context, strategy Strategy) (string, error)
	GetByID(ctx context.Context, runID string) (*MigrationRun, error)
}
