package identity

import "strings"

type LegacyRecord struct {
	ID               int64
	Email            string
	FullName         string
	PasswordHash     *string
	LinkedIdentityID *string
}

func (r LegacyRecord) HasEmail() bool {
	return strings.TrimSpace(r.Email) != ""
}

func (r LegacyRecord) HasPasswordHash() bool {
	return r.PasswordHash != nil && strings.TrimSpace(*r.PasswordHash) != ""
}

func (r LegacyRecord) IsLinked() bool {
	return r.LinkedIdentityID != nil && strings.TrimSpace(*r.LinkedIdentityID) != ""
}

type CredentialKind string

const (
	CredentialPreHashed CredentialKind = "pre_hashed"
	CredentialTemporary CredentialKind = "temporary"
)

type Credential struct {
	Kind  CredentialKind
	Value string
}

type TargetIdentity struct {
	ID          string
	Email       string
	DisplayName string
	Credential  Credential
	Verified    bool
	Role        string
}
