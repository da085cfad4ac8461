package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for missing resources and for resources owned
	// by another user; the two cases are indistinguishable to callers.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredential covers wrong passwords, unknown emails, and bad
	// or expired tokens.
	ErrInvalidCredential = errors.New("invalid credentials")

	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")

	// ErrProviderUnavailable is returned when a federated identity provider
	// could not be reached or answered with a non-success status.
	ErrProviderUnavailable = errors.New("identity provider unavailable")

	// ErrForbidden is returned when the access policy denies an action.
	ErrForbidden = errors.New("not authorized")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
