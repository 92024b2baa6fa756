package identity

import "errors"

var (
	ErrConfigMissing        = errors.New("required configuration missing")
	ErrUnknownStrategy      = errors.New("unknown provisioning strategy")
	ErrDataLayerUnreachable = errors.New("data layer unreachable")
	ErrDataLayerError       = errors.New("data layer returned errors")
	ErrEmployeeNotFound     = errors.New("employee not found")

	ErrProvisionRejected          = errors.New("provision rejected")
	ErrProvisionMalformedResponse = errors.New("provision response malformed")
	ErrIdentityExists             = errors.New("identity already exists")
	ErrIncompatibleHash           = errors.New("password hash incompatible with target store")
	ErrLinkFailed                 = errors.New("link failed")

	ErrMigrationRunNotFound  = errors.New("migration run not found")
	ErrMigrationRunLeaseLost = errors.New("migration run lease lost")
)
