// Package apperr holds the error taxonomy shared by gateways and orchestrators.
package apperr

import "errors"

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrValidation       = errors.New("validation error")
	ErrPersistence      = errors.New("persistence error")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrAIUnconfigured   = errors.New("ai service not configured")
	ErrAIGeneration     = errors.New("ai generation failed")
	ErrNetwork          = errors.New("network error")
)

// ValidationError carries a user-facing message and matches ErrValidation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validation returns a ValidationError with msg.
func Validation(msg string) error {
	return &ValidationError{Message: msg}
}

// Retryable reports whether the caller may retry the failed operation as-is.
func Retryable(err error) bool {
	return errors.Is(err, ErrAIGeneration) || errors.Is(err, ErrNetwork) || errors.Is(err, ErrPersistence)
}
