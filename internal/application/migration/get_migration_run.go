package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
)

type GetMigrationRunInput struct {
	ID string
}

type GetMigrationRunOutput struct {
	ID          string            `json:"id"`
	Strategy    string            `json:"strategy"`
	Status      string            `json:"status"`
	Attempts    int               `json:"attempts"`
	MaxAttempts int               `json:"max_attempts"`
	Error       string            `json:"error,omitempty"`
	Report      *domain.RunReport `json:"report,omitempty"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

type GetMigrationRun interface {
	Execute(ctx context.Context, in GetMigrationRunInput) (GetMigrationRunOutput, error)
}

type getMigrationRun struct {
	repo domain.MigrationRunRepository
}

func NewGetMigrationRun(repo domain.MigrationRunRepository) GetMigrationRun {
	return &getMigrationRun{repo: repo}
}

func (uc *getMigrationRun) Execute(ctx context.Context, in GetMigrationRunInput) (GetMigrationRunOutput, error) {
	if _, err := uuid.Parse(in.ID); err != nil {
		return GetMigrationRunOutput{}, ErrInvalidRunID
	}

	run, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, domain.ErrMigrationRunNotFound) {
			return GetMigrationRunOutput{}, ErrRunNotFound
		}
		return GetMigrationRunOutput{}, fmt.Errorf("%w: %v", ErrGetMigrationRun, err)
	}

	return GetMigrationRunOutput{
		ID:          run.ID,
		Strategy:    string(run.Strategy),
		Status:      run.Status,
		Attempts:    run.Attempts,
		MaxAttempts: run.MaxAttempts,
		Error:       run.Error,
		Report:      run.Report,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		CreatedAt:   run.CreatedAt,
	}, nil
}
