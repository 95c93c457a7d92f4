package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrForbidden     = errors.New("forbidden")

	// ErrPoolExhausted is returned when a store session could not be
	// acquired within the configured wait. Retriable with backoff.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrIdentityUnavailable is returned when the resolver cannot reach
	// the store. It must never be collapsed into "user does not exist":
	// callers suppress new-user behavior and retry later.
	ErrIdentityUnavailable = errors.New("identity resolution unavailable")

	// ErrUnclassifiable is returned when no title can be derived from the
	// submitted text. Non-retriable for that message.
	ErrUnclassifiable = errors.New("unclassifiable input")

	// ErrInvalidTransition is returned for a status change outside the
	// request state graph.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMissingField is returned when a terminal transition lacks its
	// required actor or reason.
	ErrMissingField = errors.New("missing required field")

	// ErrDuplicateLinkConflict is returned when two dedup decisions race
	// on the same (original, candidate) pair; the first persisted link wins.
	ErrDuplicateLinkConflict = errors.New("duplicate link conflict")

	// ErrUserBanned is returned when a banned user attempts to submit.
	ErrUserBanned = errors.New("user is banned")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}
