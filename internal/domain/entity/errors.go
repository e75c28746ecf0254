package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")

	// ErrMappingConflict indicates that a source identifier is already mapped
	// to a different politician. Existing mappings are never overwritten.
	ErrMappingConflict = errors.New("identity mapping conflict")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Unwrap lets callers match any validation error with errors.Is(err, ErrValidationFailed).
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// ErrorKind is the record-level error taxonomy. None of these abort a run:
// records are skipped, counted or deferred.
type ErrorKind string

const (
	KindParseError             ErrorKind = "PARSE_ERROR"
	KindValidationError        ErrorKind = "VALIDATION_ERROR"
	KindResolutionAmbiguous    ErrorKind = "RESOLUTION_AMBIGUOUS"
	KindResolutionNotFound     ErrorKind = "RESOLUTION_NOT_FOUND"
	KindReferentialGap         ErrorKind = "REFERENTIAL_GAP"
	KindDuplicate              ErrorKind = "DUPLICATE"
	KindReconciliationRequired ErrorKind = "RECONCILIATION_REQUIRED"
)

// Retryable reports whether a record deferred with this kind is retried
// automatically on later runs. Reconciliation needs an operator.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindResolutionAmbiguous, KindResolutionNotFound, KindReferentialGap:
		return true
	default:
		return false
	}
}

// RejectReason explains why a raw record was rejected before resolution.
type RejectReason string

const (
	ReasonMalformedDate        RejectReason = "MALFORMED_DATE"
	ReasonMalformedAmount      RejectReason = "MALFORMED_AMOUNT"
	ReasonMissingRequiredField RejectReason = "MISSING_REQUIRED_FIELD"
	ReasonBelowThreshold       RejectReason = "BELOW_THRESHOLD"
	ReasonInvalidCode          RejectReason = "INVALID_CODE"
	ReasonNotAContribution     RejectReason = "NOT_A_CONTRIBUTION"
	ReasonUnreadable           RejectReason = "UNREADABLE"
)

// Kind maps a rejection reason onto the error taxonomy.
func (r RejectReason) Kind() ErrorKind {
	switch r {
	case ReasonBelowThreshold, ReasonNotAContribution:
		return KindValidationError
	default:
		return KindParseError
	}
}

// Rejection is a record dropped by the normalizer or linker, kept for reporting.
type Rejection struct {
	Reason     RejectReason `json:"reason"`
	Ref        SourceRef    `json:"ref"`
	Detail     string       `json:"detail"`
	SourceFile string       `json:"source_file,omitempty"`
	Line       int          `json:"line,omitempty"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s %s: %s", r.Reason, r.Ref, r.Detail)
}
