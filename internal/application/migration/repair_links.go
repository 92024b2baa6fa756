package migration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
	"github.com/rs/zerolog"
)

const defaultRepairBatch = 500

type RepairLinksInput struct {
	RunID string
}

type RepairLinksOutput struct {
	RunID     string          `json:"run_id"`
	Attempted int             `json:"attempted"`
	Repaired  int             `json:"repaired"`
	Failed    int             `json:"failed"`
	Failures  []domain.Orphan `json:"failures"`
}

type RepairLinks interface {
	Execute(ctx context.Context, in RepairLinksInput) (RepairLinksOutput, error)
}

type orphanLedger interface {
	ListOrphans(ctx context.Context, runID string, limit int) ([]domain.LedgerOrphan, error)
	MarkRepaired(ctx context.Context, runID string, recordID int64) error
}

type repairLinks struct {
	ledger     orphanLedger
	linker     identityLinker
	batch      int
	maxSamples int
	logger     zerolog.Logger
}

// NewRepairLinks re-issues the link mutation for identities that were provisioned
// but never written back, without touching the auth store again.
func NewRepairLinks(ledger orphanLedger, linker identityLinker, maxSamples int, logger zerolog.Logger) RepairLinks {
	if maxSamples <= 0 {
		maxSamples = 100
	}
	return &repairLinks{
		ledger:     ledger,
		linker:     linker,
		batch:      defaultRepairBatch,
		maxSamples: maxSamples,
		logger:     logger,
	}
}

func (uc *repairLinks) Execute(ctx context.Context, in RepairLinksInput) (RepairLinksOutput, error) {
	if _, err := uuid.Parse(in.RunID); err != nil {
		return RepairLinksOutput{}, ErrInvalidRunID
	}

	orphans, err := uc.ledger.ListOrphans(ctx, in.RunID, uc.batch)
	if err != nil {
		return RepairLinksOutput{}, fmt.Errorf("%w: %v", ErrRepairLinks, err)
	}

	out := RepairLinksOutput{RunID: in.RunID, Failures: make([]domain.Orphan, 0)}
	for _, orphan := range orphans {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.Attempted++

		if err := uc.linker.Link(ctx, orphan.RecordID, orphan.TargetID); err != nil {
			out.Failed++
			if len(out.Failures) < uc.maxSamples {
				out.Failures = append(out.Failures, domain.Orphan{
					RecordID: orphan.RecordID,
					TargetID: orphan.TargetID,
					Reason:   truncate(err.Error(), maxReasonLen),
				})
			}
			uc.logger.Warn().Err(err).Int64("record_id", orphan.RecordID).Msg("link repair failed")
			continue
		}

		if err := uc.ledger.MarkRepaired(ctx, in.RunID, orphan.RecordID); err != nil {
			if errors.Is(err, context.Canceled) {
				return out, err
			}
			return out, fmt.Errorf("%w: mark record %d repaired: %v", ErrRepairLinks, orphan.RecordID, err)
		}
		out.Repaired++
	}

	uc.logger.Info().
		Str("run_id", in.RunID).
		Int("attempted", out.Attempted).
		Int("repaired", out.Repaired).
		Int("failed", out.Failed).
		Msg("link repair finished")
	return out, nil
}
