package migration

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
)

type StartMigrationRunInput struct {
	Strategy string
}

type StartMigrationRunOutput struct {
	RunID    string `json:"run_id"`
	Status   string `json:"status"`
	Strategy string `json:"strategy"`
}

type StartMigrationRun interface {
	Execute(ctx context.Context, in StartMigrationRunInput) (StartMigrationRunOutput, error)
}

type migrationRunEnqueuer interface {
	Enqueue(ctx context.Context, strategy domain.Strategy) (string, error)
}

type startMigrationRun struct {
	runRepo         migrationRunEnqueuer
	defaultStrategy domain.Strategy
}

func NewStartMigrationRun(runRepo migrationRunEnqueuer, defaultStrategy domain.Strategy) StartMigrationRun {
	return &startMigrationRun{runRepo: runRepo, defaultStrategy: defaultStrategy}
}

func (uc *startMigrationRun) Execute(ctx context.Context, in StartMigrationRunInput) (StartMigrationRunOutput, error) {
	strategy := uc.defaultStrategy
	if raw := strings.TrimSpace(in.Strategy); raw != "" {
		parsed, err := domain.ParseStrategy(raw)
		if err != nil {
			return StartMigrationRunOutput{}, fmt.Errorf("%w: %v", ErrInvalidStrategy, err)
		}
		strategy = parsed
	}

	runID, err := uc.runRepo.Enqueue(ctx, strategy)
	if err != nil {
		return StartMigrationRunOutput{}, fmt.Errorf("%w: %v", ErrEnqueueMigrationRun, err)
	}

	return StartMigrationRunOutput{
		RunID:    runID,
		Status:   domain.RunStatusQueued,
		Strategy: string(strategy),
	}, nil
}
