package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("resource conflict")
	ErrDependency   = errors.New("dependency failure")
)

// Refinements whose message is safe to show to the client.
var (
	ErrEmailTaken      = fmt.Errorf("user already exists with this email: %w", ErrConflict)
	ErrBadCredentials  = fmt.Errorf("invalid email or password: %w", ErrUnauthorized)
	ErrAccountDisabled = fmt.Errorf("account is deactivated: %w", ErrUnauthorized)
)

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap lets callers match any validation failure with errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError returns a *ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
