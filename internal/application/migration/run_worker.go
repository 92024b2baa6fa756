package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
	"github.com/rs/zerolog"
)

type migrationRunQueue interface {
	ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.MigrationRun, error)
	Heartbeat(ctx context.Context, lease domain.RunLease, leaseDuration time.Duration) error
	UpdateProgress(ctx context.Context, lease domain.RunLease, progress domain.RunProgress) error
	Complete(ctx context.Context, lease domain.RunLease, report *domain.RunReport) error
	Requeue(ctx context.Context, lease domain.RunLease, reason string) error
	Release(ctx context.Context, lease domain.RunLease, reason string) error
	Fail(ctx context.Context, lease domain.RunLease, reason string, report *domain.RunReport) error
}

type outcomeAppender interface {
	AppendOutcomes(ctx context.Context, runID string, outcomes []domain.Outcome) error
}

type migrationRunner interface {
	Run(ctx context.Context, opts RunOptions) (*domain.RunReport, error)
}

// RunLock keeps runs from different processes from hitting the auth store at once.
type RunLock interface {
	TryAcquire(ctx context.Context, ttl time.Duration) (bool, error)
	Refresh(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

type RunWorkerConfig struct {
	PollInterval      time.Duration
	LeaseDuration     time.Duration
	HeartbeatInterval time.Duration
	LedgerChunkSize   int
}

// RunWorker claims queued migration runs one at a time from a single loop.
// RunLock keeps replicas from overlapping.
type RunWorker struct {
	queue  migrationRunQueue
	ledger outcomeAppender
	runner migrationRunner
	lock   RunLock
	cfg    RunWorkerConfig
	logger zerolog.Logger

	once sync.Once
	done chan struct{}
}

func NewRunWorker(queue migrationRunQueue, ledger outcomeAppender, runner migrationRunner, lock RunLock, cfg RunWorkerConfig, logger zerolog.Logger) *RunWorker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = 60 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = cfg.LeaseDuration / 3
	}
	if cfg.LedgerChunkSize <= 0 {
		cfg.LedgerChunkSize = 500
	}
	if lock == nil {
		lock = NoopLock{}
	}

	return &RunWorker{
		queue:  queue,
		ledger: ledger,
		runner: runner,
		lock:   lock,
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (w *RunWorker) Start(ctx context.Context) {
	w.once.Do(func() {
		go func() {
			defer close(w.done)
			w.workerLoop(ctx)
		}()
	})
}

// Done is closed once the loop started by Start has returned.
func (w *RunWorker) Done() <-chan struct{} {
	return w.done
}

func (w *RunWorker) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		acquired, err := w.lock.TryAcquire(ctx, w.cfg.LeaseDuration)
		if err != nil {
			w.logger.Error().Err(err).Msg("acquire migration lock failed")
		}
		if !acquired {
			if !sleepWithContext(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		processed := w.claimAndProcess(ctx)

		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := w.lock.Release(releaseCtx); err != nil {
			w.logger.Warn().Err(err).Msg("release migration lock failed")
		}
		cancel()

		if !processed && !sleepWithContext(ctx, w.cfg.PollInterval) {
			return
		}
	}
}

func (w *RunWorker) claimAndProcess(ctx context.Context) bool {
	run, err := w.queue.ClaimNext(ctx, w.cfg.LeaseDuration)
	if err != nil {
		w.logger.Error().Err(err).Msg("claim next migration run failed")
		return false
	}
	if run == nil {
		return false
	}

	if err := w.ProcessRun(ctx, *run); err != nil {
		w.logger.Error().Err(err).Str("run_id", run.ID).Msg("process migration run failed")
	}
	return true
}

func (w *RunWorker) ProcessRun(ctx context.Context, run domain.MigrationRun) error {
	logger := w.logger.With().Str("run_id", run.ID).Logger()
	lease := run.Lease()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	// Bookkeeping calls must outlive a shutdown signal so the run is left consistent.
	bookkeeping := context.WithoutCancel(ctx)

	var (
		pending      = make([]domain.Outcome, 0, w.cfg.LedgerChunkSize)
		ledgerErrors int
		lastProgress = time.Now()
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		if err := w.ledger.AppendOutcomes(bookkeeping, run.ID, pending); err != nil {
			ledgerErrors++
			logger.Error().Err(err).Int("outcomes", len(pending)).Msg("append outcomes to ledger failed")
		}
		pending = pending[:0]
	}

	onOutcome := func(outcome domain.Outcome, report *domain.RunReport) {
		pending = append(pending, outcome)
		if len(pending) >= w.cfg.LedgerChunkSize {
			flush()
		}

		if time.Since(lastProgress) < w.cfg.HeartbeatInterval {
			return
		}
		lastProgress = time.Now()
		if err := w.queue.UpdateProgress(bookkeeping, lease, domain.ProgressOf(report)); err != nil {
			logger.Warn().Err(err).Msg("update run progress failed")
		}
	}

	// The lease is kept alive on its own ticker so a slow record cannot outlast it.
	stopBeat := make(chan struct{})
	var (
		beatWG   sync.WaitGroup
		leaseErr error
	)
	beatWG.Add(1)
	go func() {
		defer beatWG.Done()
		leaseErr = w.keepLease(bookkeeping, lease, stopBeat)
		if leaseErr != nil {
			cancelRun()
		}
	}()

	report, runErr := w.runner.Run(runCtx, RunOptions{Strategy: run.Strategy, OnOutcome: onOutcome})
	close(stopBeat)
	beatWG.Wait()
	flush()

	if ledgerErrors > 0 {
		logger.Error().Int("failed_flushes", ledgerErrors).Msg("some outcomes are missing from the ledger")
	}

	switch {
	case errors.Is(leaseErr, domain.ErrMigrationRunLeaseLost):
		// Another worker owns the run now; anything we write would be rejected.
		return leaseErr
	case runErr == nil:
		if err := w.queue.UpdateProgress(bookkeeping, lease, domain.ProgressOf(report)); err != nil {
			logger.Warn().Err(err).Msg("update final progress failed")
		}
		if err := w.queue.Complete(bookkeeping, lease, report); err != nil {
			return fmt.Errorf("complete run: %w", err)
		}
		return nil
	case leaseErr != nil:
		return w.onProcessingError(bookkeeping, run, report, leaseErr)
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		// Shutdown: the attempt is given back and already-linked records are
		// skipped on the next claim.
		if err := w.queue.Release(bookkeeping, lease, "worker stopped before run finished"); err != nil {
			return fmt.Errorf("%v; release failed: %w", runErr, err)
		}
		return runErr
	default:
		return w.onProcessingError(bookkeeping, run, report, runErr)
	}
}

// keepLease extends the run lease and the run lock every heartbeat interval until
// stop is closed. It returns the first failure.
func (w *RunWorker) keepLease(ctx context.Context, lease domain.RunLease, stop <-chan struct{}) error {
	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
		}

		beatCtx, cancel := context.WithTimeout(ctx, w.cfg.LeaseDuration)
		err := w.queue.Heartbeat(beatCtx, lease, w.cfg.LeaseDuration)
		if err != nil {
			cancel()
			return fmt.Errorf("heartbeat: %w", err)
		}
		err = w.lock.Refresh(beatCtx, w.cfg.LeaseDuration)
		cancel()
		if err != nil {
			return fmt.Errorf("refresh lock: %w", err)
		}
	}
}

func (w *RunWorker) onProcessingError(ctx context.Context, run domain.MigrationRun, report *domain.RunReport, err error) error {
	reason := truncate(err.Error(), maxReasonLen)
	if run.Attempts < run.MaxAttempts {
		if requeueErr := w.queue.Requeue(ctx, run.Lease(), reason); requeueErr != nil {
			return fmt.Errorf("%v; requeue failed: %w", err, requeueErr)
		}
		return err
	}

	if failErr := w.queue.Fail(ctx, run.Lease(), reason, report); failErr != nil {
		return fmt.Errorf("%v; fail update failed: %w", err, failErr)
	}
	return err
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

type NoopLock struct{}

func (NoopLock) TryAcquire(context.Context, time.Duration) (bool, error) { return true, nil }
func (NoopLock) Refresh(context.Context, time.Duration) error            { return nil }
func (NoopLock) Release(context.Context) error                           { return nil }
