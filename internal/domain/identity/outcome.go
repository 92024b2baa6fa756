package identity

import "fmt"

type OutcomeKind string

const (
	OutcomeMigrated                 OutcomeKind = "migrated"
	OutcomeSkippedNoEmail           OutcomeKind = "skipped_no_email"
	OutcomeSkippedNoPasswordHash    OutcomeKind = "skipped_no_password_hash"
	OutcomeSkippedAlreadyLinked     OutcomeKind = "skipped_already_linked"
	OutcomeSkippedIdentityExists    OutcomeKind = "skipped_identity_exists"
	OutcomeSkippedIncompatibleHash  OutcomeKind = "skipped_incompatible_hash"
	OutcomeSkippedProvisionFailed   OutcomeKind = "skipped_provision_failed"
	OutcomeSkippedMalformedResponse OutcomeKind = "skipped_malformed_response"
	OutcomeLinkFailed               OutcomeKind = "link_failed"
	OutcomeUnhandledException       OutcomeKind = "unhandled_exception"
)

func (k OutcomeKind) IsSkip() bool {
	switch k {
	case OutcomeSkippedNoEmail,
		OutcomeSkippedNoPasswordHash,
		OutcomeSkippedAlreadyLinked,
		OutcomeSkippedIdentityExists,
		OutcomeSkippedIncompatibleHash,
		OutcomeSkippedProvisionFailed,
		OutcomeSkippedMalformedResponse:
		return true
	}
	return false
}

// IsError reports whether the outcome carries diagnostic detail worth sampling.
func (k OutcomeKind) IsError() bool {
	switch k {
	case OutcomeSkippedProvisionFailed,
		OutcomeSkippedMalformedResponse,
		OutcomeLinkFailed,
		OutcomeUnhandledException:
		return true
	}
	return false
}

type Outcome struct {
	RecordID int64
	Email    string
	Kind     OutcomeKind
	TargetID string
	Reason   string
	Raw      string
	Trace    string
}

// ProvisionError classifies a failed provision call. Kind is one of the provision
// sentinels so callers can use errors.Is.
type ProvisionError struct {
	Kind   error
	Status int
	Reason string
	Raw    string
}

func (e *ProvisionError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%v (status %d): %s", e.Kind, e.Status, e.Reason)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
}

func (e *ProvisionError) Unwrap() error {
	return e.Kind
}
