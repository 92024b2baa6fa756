package migration_test

import (
	"context"
	"fmt"
	"time"

	app "github.com/mohammadpnp/identity-migration/internal/application/migration"
	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
	"github.com/rs/zerolog"
)

func strPtr(v string) *string {
	return &v
}

type fakeSource struct {
	records []domain.LegacyRecord
	err     error
	calls   int
}

func (f *fakeSource) FetchUnmigratedRecords(ctx context.Context) ([]domain.LegacyRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type createCall struct {
	strategy domain.Strategy
	identity domain.TargetIdentity
}

// fakeStore is an IdentityStore keyed by email. Unknown emails get "id-<email>".
type fakeStore struct {
	errs  map[string]error
	ids   map[string]string
	calls []createCall
	panic string
}

func (f *fakeStore) respond(strategy domain.Strategy, identity domain.TargetIdentity) (string, error) {
	f.calls = append(f.calls, createCall{strategy: strategy, identity: identity})
	if f.panic != "" && identity.Email == f.panic {
		panic("boom for " + identity.Email)
	}
	if err, ok := f.errs[identity.Email]; ok {
		return "", err
	}
	if id, ok := f.ids[identity.Email]; ok {
		return id, nil
	}
	return "id-" + identity.Email, nil
}

func (f *fakeStore) CreateWithHash(ctx context.Context, identity domain.TargetIdentity) (string, error) {
	return f.respond(domain.StrategyAdminCreateWithHash, identity)
}

func (f *fakeStore) SignUp(ctx context.Context, identity domain.TargetIdentity) (string, error) {
	return f.respond(domain.StrategySelfSignupTemporary, identity)
}

type linkCall struct {
	legacyID int64
	targetID string
}

type fakeLinks struct {
	failures map[int64][]error
	calls    []linkCall
	panicFor int64
}

func (f *fakeLinks) LinkIdentity(ctx context.Context, legacyID int64, targetID string) error {
	f.calls = append(f.calls, linkCall{legacyID: legacyID, targetID: targetID})
	if f.panicFor != 0 && legacyID == f.panicFor {
		panic(fmt.Sprintf("link blew up for %d", legacyID))
	}
	queue := f.failures[legacyID]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	f.failures[legacyID] = queue[1:]
	return err
}

func newTestMigrator(source *fakeSource, store *fakeStore, links *fakeLinks, strategy domain.Strategy) *app.Migrator {
	provisioner := app.NewProvisioner(store, app.ProvisionerConfig{TemporaryPassword: "Temp#2024", DefaultRole: "user"})
	reconciler := app.NewReconciler(links, app.ReconcilerConfig{Retries: 2, RetryBase: time.Millisecond})
	return app.NewMigrator(source, provisioner, reconciler, app.MigratorConfig{Strategy: strategy, MaxErrorSamples: 10}, testLogger())
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
