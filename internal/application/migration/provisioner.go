package migration

import (
	"context"
	"fmt"

	domain "github.com/mohammadpnp/identity-migration/internal/domain/identity"
	"golang.org/x/crypto/bcrypt"
)

type IdentityStore interface {
	CreateWithHash(ctx context.Context, identity domain.TargetIdentity) (string, error)
	SignUp(ctx context.Context, identity domain.TargetIdentity) (string, error)
}

type ProvisionerConfig struct {
	TemporaryPassword string
	DefaultRole       string
	// RequireBcrypt rejects legacy hashes that do not parse as bcrypt.
	RequireBcrypt bool
	// ExpectedHashCost pins the bcrypt cost the target store verifies with; 0 accepts any.
	ExpectedHashCost int
}

type Provisioner struct {
	store IdentityStore
	cfg   ProvisionerConfig
}

func NewProvisioner(store IdentityStore, cfg ProvisionerConfig) *Provisioner {
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = "user"
	}
	return &Provisioner{store: store, cfg: cfg}
}

func (p *Provisioner) Provision(ctx context.Context, strategy domain.Strategy, record domain.LegacyRecord) (domain.TargetIdentity, error) {
	identity := domain.TargetIdentity{
		Email:       record.Email,
		DisplayName: record.FullName,
		Role:        p.cfg.DefaultRole,
	}

	var (
		id  string
		err error
	)
	switch strategy {
	case domain.StrategyAdminCreateWithHash:
		if err := p.checkHash(record); err != nil {
			return domain.TargetIdentity{}, err
		}
		identity.Credential = domain.Credential{Kind: domain.CredentialPreHashed, Value: *record.PasswordHash}
		identity.Verified = true
		id, err = p.store.CreateWithHash(ctx, identity)
	case domain.StrategySelfSignupTemporary:
		identity.Credential = domain.Credential{Kind: domain.CredentialTemporary, Value: p.cfg.TemporaryPassword}
		id, err = p.store.SignUp(ctx, identity)
	default:
		return domain.TargetIdentity{}, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, strategy)
	}
	if err != nil {
		return domain.TargetIdentity{}, err
	}

	identity.ID = id
	return identity, nil
}

// checkHash refuses hashes the target store could never verify, so migrated users
// are not left unable to log in with their old password.
func (p *Provisioner) checkHash(record domain.LegacyRecord) error {
	if !record.HasPasswordHash() {
		return &domain.ProvisionError{Kind: domain.ErrIncompatibleHash, Reason: "no password hash"}
	}
	if !p.cfg.RequireBcrypt {
		return nil
	}

	cost, err := bcrypt.Cost([]byte(*record.PasswordHash))
	if err != nil {
		return &domain.ProvisionError{Kind: domain.ErrIncompatibleHash, Reason: fmt.Sprintf("not a bcrypt hash: %v", err)}
	}
	if p.cfg.ExpectedHashCost > 0 && cost != p.cfg.ExpectedHashCost {
		return &domain.ProvisionError{
			Kind:   domain.ErrIncompatibleHash,
			Reason: fmt.Sprintf("bcrypt cost %d, target expects %d", cost, p.cfg.ExpectedHashCost),
		}
	}
	return nil
}
