package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
	"github.com/sethvargo/go-retry"
)

type ReconcilerConfig struct {
	Retries   uint64
	RetryBase time.Duration
}

// Reconciler writes the target identity id back into the legacy record. It retries
// on its own, independently of provisioning, so a transient failure does not orphan
// an identity that was already created.
type Reconciler struct {
	links domain.LinkWriter
	cfg   ReconcilerConfig
}

func NewReconciler(links domain.LinkWriter, cfg ReconcilerConfig) *Reconciler {
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 250 * time.Millisecond
	}
	return &Reconciler{links: links, cfg: cfg}
}

func (r *Reconciler) Link(ctx context.Context, legacyID int64, targetID string) error {
	if strings.TrimSpace(targetID) == "" {
		return fmt.Errorf("%w: empty target identity id for employee %d", domain.ErrLinkFailed, legacyID)
	}

	backoff := retry.WithMaxRetries(r.cfg.Retries, retry.NewExponential(r.cfg.RetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := r.links.LinkIdentity(ctx, legacyID, targetID)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrEmployeeNotFound) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLinkFailed, err)
	}
	return nil
}
