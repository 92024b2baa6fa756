package migration_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	app "github.com/mohammadpnp/identity-migration/internal/application/migration"
	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
)

func TestMigratorRunAdminCreateScenario(t *testing.T) {
	t.Parallel()

	source := &fakeSource{records: []domain.LegacyRecord{
		{ID: 1, Email: "a@x.com", FullName: "A", PasswordHash: strPtr("h1")},
		{ID: 2, Email: "", FullName: "B", PasswordHash: strPtr("h2")},
		{ID: 3, Email: "c@x.com", FullName: "C"},
	}}
	store := &fakeStore{}
	links := &fakeLinks{}

	report, err := newTestMigrator(source, store, links, domain.StrategyAdminCreateWithHash).Run(context.Background(), app.RunOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !report.Success {
		t.Fatal("expected success")
	}
	if report.TotalRecords != 3 || report.Migrated != 1 || report.Skipped != 2 || report.Failed != 0 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.ByKind[domain.OutcomeSkippedNoEmail] != 1 {
		t.Fatalf("expected one no-email skip, got %v", report.ByKind)
	}
	if report.ByKind[domain.OutcomeSkippedNoPasswordHash] != 1 {
		t.Fatalf("expected one no-hash skip, got %v", report.ByKind)
	}

	if len(store.calls) != 1 {
		t.Fatalf("expected 1 provision call, got %d", len(store.calls))
	}
	created := store.calls[0].identity
	if created.Credential.Kind != domain.CredentialPreHashed || created.Credential.Value != "h1" {
		t.Fatalf("expected hash h1 to be forwarded, got %+v", created.Credential)
	}
	if !created.Verified || created.Role != "user" || created.DisplayName != "A" {
		t.Fatalf("unexpected identity: %+v", created)
	}

	if len(links.calls) != 1 {
		t.Fatalf("expected 1 link call, got %d", len(links.calls))
	}
	if links.calls[0] != (linkCall{legacyID: 1, targetID: "id-a@x.com"}) {
		t.Fatalf("unexpected link call: %+v", links.calls[0])
	}
}

func TestMigratorRunSkipsLinkedRecordsOnRerun(t *testing.T) {
	t.Parallel()

	source := &fakeSource{records: []domain.LegacyRecord{
		{ID: 1, Email: "a@x.com", PasswordHash: strPtr("h1"), LinkedIdentityID: strPtr("target-1")},
		{ID: 2, Email: "b@x.com", PasswordHash: strPtr("h2"), LinkedIdentityID: strPtr("target-2")},
	}}
	store := &fakeStore{}
	links := &fakeLinks{}

	report, err := newTestMigrator(source, store, links, domain.StrategyAdminCreateWithHash).Run(context.Background(), app.RunOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(store.calls) != 0 || len(links.calls) != 0 {
		t.Fatalf("expected no external writes, got %d provisions and %d links", len(store.calls), len(links.calls))
	}
	if report.Skipped != 2 || report.ByKind[domain.OutcomeSkippedAlreadyLinked] != 2 {
		t.Fatalf("expected 2 already-linked skips, got %+v", report)
	}
}

func TestMigratorRunNeverProvisionsBlankEmail(t *testing.T) {
	t.Parallel()

	source := &fakeSource{records: []domain.LegacyRecord{
		{ID: 1, Email: "   ", PasswordHash: strPtr("h1")},
		{ID: 2, Email: "", PasswordHash: strPtr("h2")},
	}}
	store := &fakeStore{}

	report, err := newTestMigrator(source, store, &fakeLinks{}, domain.StrategySelfSignupTemporary).Run(context.Background(), app.RunOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(store.calls) != 0 {
		t.Fatalf("expected no provision calls, got %d", len(store.calls))
	}
	if report.ByKind[domain.OutcomeSkippedNoEmail] != 2 {
		t.Fatalf("expected 2 no-email skips, got %v", report.ByKind)
	}
}

func TestMigratorRunCapturesMalformedResponseAndContinues(t *testing.T) {
	t.Parallel()

	raw := "<html>502 Bad Gateway</html>"
	source := &fakeSource{records: []domain.LegacyRecord{
		{ID: 1, Email: "a@x.com", PasswordHash: strPtr("h1")},
		{ID: 2, Email: "b@x.com", PasswordHash: strPtr("h2")},
	}}
	store := &fakeStore{errs: map[string]error{
		"a@x.com": &domain.ProvisionError{Kind: domain.ErrProvisionMalformedResponse, Status: 200, Reason: "response is not JSON", Raw: raw},
	}}
	links := &fakeLinks{}

	report, err := newTestMigrator(source, store, links, domain.StrategyAdminCreateWithHash).Run(context.Background(), app.RunOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if report.TotalRecords != 2 || report.Migrated != 1 || report.Skipped != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(report.SampleErrors) != 1 {
		t.Fatalf("expected 1 sample error, got %d", len(report.SampleErrors))
	}
	sample := report.SampleErrors[0]
	if sample.Kind != domain.OutcomeSkippedMalformedResponse || sample.Raw != raw || sample.RecordID != 1 {
		t.Fatalf("unexpected sample: %+v", sample)
	}
	if len(links.calls) != 1 || links.calls[0].legacyID != 2 {
		t.Fatalf("expected only record 2 to be linked, got %+v", links.calls)
	}
}

func TestMigratorRunTreatsConflictAsSkip(t *testing.T) {
	t.Parallel()

	source := &fakeSource{records: []domain.LegacyRecord{
		{ID: 1, Email: "a@x.com", PasswordHash: strPtr("h1")},
		{ID: 2, Email: "b@x.com", PasswordHash: strPtr("h2")},
		{ID: 3, Email: "c@x.com", PasswordHash: strPtr("h3")},
	}}
	store := &fakeStore{errs: map[string]error{
		"b@x.com": &domain.ProvisionError{Kind: domain.ErrIdentityExists, Status: 409, Reason: "email exists"},
	}}

	report, err := newTestMigrator(source, store, &fakeLinks{}, domain.StrategyAdminCreateWithHash).Run(context.Background(), app.RunOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !report.Success || report.FatalError != "" {
		t.Fatalf("expected a successful run, got %+v", report)
	}
	if report.Processed != 3 || report.Migrated != 2 || report.Skipped != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.ByKind[domain.OutcomeSkippedIdentityExists] != 1 {
		t.Fatalf("expected identity-exists skip, got %v", report.ByKind)
	}
	if report.ErrorCount != 0 {
		t.Fatalf("expected conflict not to count as error, got %d", report.ErrorCount)
	}
}

func TestMigratorRunSourceFailureIsFatal(t *testing.T) {
	t.Parallel()

	sourceErr := fmt.Errorf("%w: dial tcp: connection refused", domain.ErrDataLayerUnreachable)
	source := &fakeSource{err: sourceErr}
	store := &fakeStore{}

	report, err := newTestMigrator(source, store, &fakeLinks{}, domain.StrategyAdminCreateWithHash).Run(context.Background(), app.RunOptions{})
	if !errors.Is(err, domain.ErrDataLayerUnreachable) {
		t.Fatalf("expected ErrDataLayerUnreachable, got %v", err)
	}
	if report == nil {
		t.Fatal("expected a report")
	}
	if report.Success {
		t.Fatal("did not expect success")
	}
	if report.FatalError == "" {
		t.Fatal("expected fatal error in report")
	}
	if report.TotalRecords != 0 || report.Processed != 0 || report.Migrated != 0 || report.Skipped != 0 {
		t.Fatalf("expected zero counts, got %+v", report)
	}
	if len(store.calls) != 0 {
		t.Fatalf("expected no provision calls, got %d", len(store.calls))
	}
}

func TestMigratorRunReportsOrphanWhenLinkKeepsFailing(t *testing.T) {
	t.Parallel()

	linkErr := fmt.Errorf("%w: timeout", domain.ErrDataLayerUnreachable)
	source := &fakeSource{records: []domain.LegacyRecord{{ID: 7, Email: "a@x.com", PasswordHash: strPtr("h1")}}}
	links := &fakeLinks{failures: map[int64][]error{7: {linkErr, linkErr, linkErr}}}

	report, err := newTestMigrator(source, &fakeStore{}, links, domain.StrategyAdminCreateWithHash).Run(context.Background(), app.RunOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(links.calls) != 3 {
		t.Fatalf("expected 3 link attempts, got %d", len(links.calls))
	}
	if report.Failed != 1 || report.Migrated != 0 || report.OrphanCount != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(report.Orphans) != 1 || report.Orphans[0].RecordID != 7 || report.Orphans[0].TargetID != "id-a@x.com" {
		t.Fatalf("unexpected orphans: %+v", report.Orphans)
	}
	if !strings.Contains(report.Orphans[0].Reason, domain.ErrLinkFailed.Error()) {
		t.Fatalf("expected link failure reason, got %q", report.Orphans[0].Reason)
	}
}

func TestMigratorRunRetriesTransientLinkFailure(t *testing.T) {
	t.Parallel()

	source := &fakeSource{records: []domain.LegacyRecord{{ID: 7, Email: "a@x.com", PasswordHash: strPtr("h1")}}}
	links := &fakeLinks{failures: map[int64][]error{7: {errors.New("temporary")}}}

	report, err := newTestMigrator(source, &fakeStore{}, links, domain.StrategyAdminCreateWithHash).Run(context.Background(), app.RunOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.Migrated != 1 || report.OrphanCount != 0 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(links.calls) != 2 {
		t.Fatalf("expected 2 link attempts, got %d", len(links.calls))
	}
}

func TestMigratorRunRecoversPanicAsUnhandled(t *testing.T) {
	t.Parallel()

	source := &fakeSource{records: []domain.LegacyRecord{
		{ID: 1, Email: "a@x.com", PasswordHash: strPtr("h1")},
		{ID: 2, Email: "b@x.com", PasswordHash: strPtr("h2")},
	}}
	store := &fakeStore{panic: "a@x.com"}

	report, err := newTestMigrator(source, store, &fakeLinks{}, domain.StrategyAdminCreateWithHash).Run(context.Background(), app.RunOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.ByKind[domain.OutcomeUnhandledException] != 1 || report.Migrated != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	sample := report.SampleErrors[0]
	if !strings.Contains(sample.Reason, "boom for a@x.com") {
		t.Fatalf("expected panic message, got %q", sample.Reason)
	}
	if sample.Trace == "" {
		t.Fatal("expected stack trace")
	}
}

func TestMigratorRunReportsOrphanWhenLinkPanics(t *testing.T) {
	t.Parallel()

	source := &fakeSource{records: []domain.LegacyRecord{
		{ID: 1, Email: "a@x.com", PasswordHash: strPtr("h1")},
		{ID: 2, Email: "b@x.com", PasswordHash: strPtr("h2")},
	}}
	links := &fakeLinks{panicFor: 1}

	var outcomes []domain.Outcome
	report, err := newTestMigrator(source, &fakeStore{}, links, domain.StrategyAdminCreateWithHash).Run(context.Background(), app.RunOptions{
		OnOutcome: func(outcome domain.Outcome, _ *domain.RunReport) {
			outcomes = append(outcomes, outcome)
		},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if report.ByKind[domain.OutcomeLinkFailed] != 1 || report.ByKind[domain.OutcomeUnhandledException] != 0 {
		t.Fatalf("expected the panic to be classified as a link failure, got %+v", report.ByKind)
	}
	if report.Migrated != 1 || report.Failed != 1 || report.OrphanCount != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(report.Orphans) != 1 || report.Orphans[0].RecordID != 1 || report.Orphans[0].TargetID != "id-a@x.com" {
		t.Fatalf("unexpected orphans: %+v", report.Orphans)
	}
	if outcomes[0].Kind != domain.OutcomeLinkFailed || outcomes[0].Trace == "" {
		t.Fatalf("expected ledger outcome with trace, got %+v", outcomes[0])
	}
	if !strings.Contains(outcomes[0].Reason, "link blew up for 1") {
		t.Fatalf("expected panic message as reason, got %q", outcomes[0].Reason)
	}
}

func TestMigratorRunCancelsBetweenRecords(t *testing.T) {
	t.Parallel()

	source := &fakeSource{records: []domain.LegacyRecord{
		{ID: 1, Email: "a@x.com", PasswordHash: strPtr("h1")},
		{ID: 2, Email: "b@x.com", PasswordHash: strPtr("h2")},
		{ID: 3, Email: "c@x.com", PasswordHash: strPtr("h3")},
	}}
	store := &fakeStore{}
	links := &fakeLinks{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	report, err := newTestMigrator(source, store, links, domain.StrategyAdminCreateWithHash).Run(ctx, app.RunOptions{
		OnOutcome: func(outcome domain.Outcome, report *domain.RunReport) {
			cancel()
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !report.Cancelled || report.Success {
		t.Fatalf("expected cancelled report, got %+v", report)
	}
	if report.Processed != 1 || report.Migrated != 1 {
		t.Fatalf("expected the first record to finish, got %+v", report)
	}
	if len(store.calls) != 1 || len(links.calls) != 1 {
		t.Fatalf("expected one record of external calls, got %d/%d", len(store.calls), len(links.calls))
	}
}

func TestMigratorRunSelfSignupUsesTemporaryPassword(t *testing.T) {
	t.Parallel()

	source := &fakeSource{records: []domain.LegacyRecord{{ID: 1, Email: "a@x.com", FullName: "A"}}}
	store := &fakeStore{ids: map[string]string{"a@x.com": "signup-1"}}
	links := &fakeLinks{}

	report, err := newTestMigrator(source, store, links, domain.StrategyAdminCreateWithHash).Run(context.Background(), app.RunOptions{
		Strategy: domain.StrategySelfSignupTemporary,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.Strategy != domain.StrategySelfSignupTemporary || report.Migrated != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if store.calls[0].strategy != domain.StrategySelfSignupTemporary {
		t.Fatalf("expected signup call, got %s", store.calls[0].strategy)
	}
	if cred := store.calls[0].identity.Credential; cred.Kind != domain.CredentialTemporary || cred.Value != "Temp#2024" {
		t.Fatalf("unexpected credential: %+v", cred)
	}
	if links.calls[0].targetID != "signup-1" {
		t.Fatalf("expected signup-1 to be linked, got %s", links.calls[0].targetID)
	}
}

func TestMigratorRunBoundsSampleErrors(t *testing.T) {
	t.Parallel()

	records := make([]domain.LegacyRecord, 0, 15)
	errs := make(map[string]error)
	for i := 1; i <= 15; i++ {
		email := fmt.Sprintf("user%d@x.com", i)
		records = append(records, domain.LegacyRecord{ID: int64(i), Email: email, PasswordHash: strPtr("h")})
		errs[email] = &domain.ProvisionError{Kind: domain.ErrProvisionRejected, Status: 500, Reason: "internal"}
	}

	report, err := newTestMigrator(&fakeSource{records: records}, &fakeStore{errs: errs}, &fakeLinks{}, domain.StrategyAdminCreateWithHash).Run(context.Background(), app.RunOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report.ErrorCount != 15 || report.Skipped != 15 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if len(report.SampleErrors) != 10 {
		t.Fatalf("expected 10 samples, got %d", len(report.SampleErrors))
	}
}
