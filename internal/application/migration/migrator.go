package migration

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
	"github.com/mohammadpnp/identity-migration/internal/observability"
	"github.com/rs/zerolog"
)

const (
	maxReasonLen = 1000
	maxTraceLen  = 4000
)

type identityProvisioner interface {
	Provision(ctx context.Context, strategy domain.Strategy, record domain.LegacyRecord) (domain.TargetIdentity, error)
}

type identityLinker interface {
	Link(ctx context.Context, legacyID int64, targetID string) error
}

type MigratorConfig struct {
	Strategy        domain.Strategy
	MaxErrorSamples int
}

type RunOptions struct {
	// Strategy overrides the configured strategy when set.
	Strategy domain.Strategy
	// OnOutcome runs after each record is tallied, on the orchestrator's goroutine.
	OnOutcome func(outcome domain.Outcome, report *domain.RunReport)
}

// Migrator reads legacy records once and walks them strictly in order: skip check,
// provision, link, tally. Only a source failure aborts a run; everything that goes
// wrong inside a record becomes that record's outcome.
type Migrator struct {
	source      domain.SourceReader
	provisioner identityProvisioner
	linker      identityLinker
	cfg         MigratorConfig
	logger      zerolog.Logger
}

func NewMigrator(source domain.SourceReader, provisioner identityProvisioner, linker identityLinker, cfg MigratorConfig, logger zerolog.Logger) *Migrator {
	if cfg.Strategy == "" {
		cfg.Strategy = domain.StrategyAdminCreateWithHash
	}
	if cfg.MaxErrorSamples <= 0 {
		cfg.MaxErrorSamples = 100
	}
	return &Migrator{
		source:      source,
		provisioner: provisioner,
		linker:      linker,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run always returns a report. The error is non-nil when the source could not be
// read (report.FatalError is set, nothing processed) or when ctx was cancelled
// between records (report.Cancelled is set).
func (m *Migrator) Run(ctx context.Context, opts RunOptions) (*domain.RunReport, error) {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = m.cfg.Strategy
	}
	report := domain.NewRunReport(strategy, m.cfg.MaxErrorSamples)
	logger := m.logger.With().Str("strategy", string(strategy)).Logger()

	records, err := m.source.FetchUnmigratedRecords(ctx)
	if err != nil {
		report.FatalError = err.Error()
		observability.RecordRun(string(strategy), "fatal")
		logger.Error().Err(err).Msg("reading legacy records failed, run aborted")
		return report, err
	}
	report.TotalRecords = len(records)
	logger.Info().Int("total_records", len(records)).Msg("migration run started")

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			report.Cancelled = true
			observability.RecordRun(string(strategy), "cancelled")
			logger.Warn().
				Int("processed", report.Processed).
				Int("total_records", report.TotalRecords).
				Msg("migration run cancelled between records")
			return report, err
		}

		// A started record finishes even if the run is cancelled meanwhile; each
		// call inside it is still bounded by its own timeout.
		outcome := m.processRecord(context.WithoutCancel(ctx), strategy, record)
		report.Record(outcome)
		observability.RecordOutcome(string(strategy), string(outcome.Kind))
		logOutcome(logger, outcome)

		if opts.OnOutcome != nil {
			opts.OnOutcome(outcome, report)
		}
	}

	report.Success = true
	observability.RecordRun(string(strategy), "completed")
	logger.Info().
		Int("total_records", report.TotalRecords).
		Int("migrated", report.Migrated).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("orphans", report.OrphanCount).
		Msg("migration run completed")
	return report, nil
}

func (m *Migrator) processRecord(ctx context.Context, strategy domain.Strategy, record domain.LegacyRecord) (outcome domain.Outcome) {
	outcome = domain.Outcome{RecordID: record.ID, Email: record.Email}

	defer func() {
		if r := recover(); r != nil {
			outcome.Kind = domain.OutcomeUnhandledException
			// Provisioned but never linked: the identity exists and needs repair.
			if outcome.TargetID != "" && !record.IsLinked() {
				outcome.Kind = domain.OutcomeLinkFailed
			}
			outcome.Reason = truncate(fmt.Sprint(r), maxReasonLen)
			outcome.Trace = truncate(string(debug.Stack()), maxTraceLen)
		}
	}()

	switch {
	case record.IsLinked():
		outcome.Kind = domain.OutcomeSkippedAlreadyLinked
		outcome.TargetID = *record.LinkedIdentityID
		return outcome
	case !record.HasEmail():
		outcome.Kind = domain.OutcomeSkippedNoEmail
		return outcome
	case strategy.RequiresPasswordHash() && !record.HasPasswordHash():
		outcome.Kind = domain.OutcomeSkippedNoPasswordHash
		return outcome
	}

	target, err := m.provisioner.Provision(ctx, strategy, record)
	if err != nil {
		classifyProvisionFailure(&outcome, err)
		return outcome
	}
	outcome.TargetID = target.ID

	if err := m.linker.Link(ctx, record.ID, target.ID); err != nil {
		outcome.Kind = domain.OutcomeLinkFailed
		outcome.Reason = truncate(err.Error(), maxReasonLen)
		return outcome
	}

	outcome.Kind = domain.OutcomeMigrated
	return outcome
}

func classifyProvisionFailure(outcome *domain.Outcome, err error) {
	outcome.Reason = truncate(err.Error(), maxReasonLen)

	var perr *domain.ProvisionError
	if !errors.As(err, &perr) {
		outcome.Kind = domain.OutcomeSkippedProvisionFailed
		return
	}
	outcome.Raw = perr.Raw

	switch {
	case errors.Is(perr.Kind, domain.ErrIdentityExists):
		outcome.Kind = domain.OutcomeSkippedIdentityExists
	case errors.Is(perr.Kind, domain.ErrIncompatibleHash):
		outcome.Kind = domain.OutcomeSkippedIncompatibleHash
	case errors.Is(perr.Kind, domain.ErrProvisionMalformedResponse):
		outcome.Kind = domain.OutcomeSkippedMalformedResponse
	default:
		outcome.Kind = domain.OutcomeSkippedProvisionFailed
	}
}

func logOutcome(logger zerolog.Logger, outcome domain.Outcome) {
	event := logger.Debug()
	switch {
	case outcome.Kind == domain.OutcomeMigrated:
		event = logger.Info()
	case outcome.Kind == domain.OutcomeLinkFailed, outcome.Kind == domain.OutcomeUnhandledException:
		event = logger.Error()
	case outcome.Kind.IsError():
		event = logger.Warn()
	}

	event.
		Int64("record_id", outcome.RecordID).
		Str("kind", string(outcome.Kind)).
		Str("target_id", outcome.TargetID).
		Str("reason", outcome.Reason).
		Msg("record processed")
}

func truncate(value string, maxLen int) string {
	value = strings.TrimSpace(value)
	if len(value) <= maxLen {
		return value
	}
	return value[:maxLen]
}
