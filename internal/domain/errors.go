package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrValidation        = errors.New("validation failed")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrNoSession         = errors.New("login required")
)

// ValidationError reports a missing or malformed input field.
// It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsPermissionDenied reports whether err is a store permission denial
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
