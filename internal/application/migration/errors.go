package migration

import "errors"

var (
	ErrInvalidStrategy     = errors.New("invalid migration strategy")
	ErrEnqueueMigrationRun = errors.New("failed to enqueue migration run")
	ErrInvalidRunID        = errors.New("invalid migration run id")
	ErrRunNotFound         = errors.New("migration run not found")
	ErrGetMigrationRun     = errors.New("failed to get migration run")
	ErrRepairLinks         = errors.New("failed to repair links")
)
