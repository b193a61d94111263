package domain

import (
	"errors"
	"fmt"
)

// Reason is a stable, machine-readable failure class. The reason string is
// always a substring of the rendered error, so callers and tests can match
// on failure class without parsing free text.
type Reason string

const (
	ReasonInvalidClaim      Reason = "evidence_invalid_claim"
	ReasonInvalidEntry      Reason = "evidence_invalid_entry"
	ReasonInvalidType       Reason = "evidence_invalid_type"
	ReasonInvalidConfidence Reason = "evidence_invalid_confidence"
	ReasonInvalidConfig     Reason = "evidence_invalid_config"
	ReasonInvalidOutcome    Reason = "evidence_invalid_outcome"
	ReasonStoreUnavailable  Reason = "evidence_store_unavailable"
	ReasonStoreReadFailed   Reason = "evidence_store_read_failed"
	ReasonStoreUpdateFailed Reason = "evidence_store_update_failed"
	ReasonInvalidTimestamp  Reason = "evidence_invalid_timestamp"
)

// UnverifiedError is the single tagged condition every engine failure
// surfaces as.
type UnverifiedError struct {
	Reason Reason
	Detail string
	cause  error
}

// Unverified builds a reason-coded error with no underlying cause.
func Unverified(reason Reason, detail string) *UnverifiedError {
	return &UnverifiedError{Reason: reason, Detail: detail}
}

// WrapUnverified tags an underlying failure, preserving its message as
// context.
func WrapUnverified(reason Reason, detail string, cause error) *UnverifiedError {
	return &UnverifiedError{Reason: reason, Detail: detail, cause: cause}
}

func (e *UnverifiedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("unverified [%s] %s: %v", e.Reason, e.Detail, e.cause)
	}
	return fmt.Sprintf("unverified [%s] %s", e.Reason, e.Detail)
}

func (e *UnverifiedError) Unwrap() error {
	return e.cause
}

// ReasonOf extracts the reason code from err, or "" when err carries none.
func ReasonOf(err error) Reason {
	var ue *UnverifiedError
	if errors.As(err, &ue) {
		return ue.Reason
	}
	return ""
}
