package model

import (
	"errors"
	"fmt"
)

// ValidationErrorCode categorizes synchronous input errors.
type ValidationErrorCode string

const (
	// ErrCodeBadPattern indicates a malformed listener pattern.
	ErrCodeBadPattern ValidationErrorCode = "BAD_PATTERN"

	// ErrCodeBadPath indicates a path that cannot be applied to the
	// document tree it addresses.
	ErrCodeBadPath ValidationErrorCode = "BAD_PATH"

	// ErrCodeBadTarget indicates a fetch or subscribe target that is
	// not a two-segment collection.id path.
	ErrCodeBadTarget ValidationErrorCode = "BAD_TARGET"

	// ErrCodeLocalCollection indicates a backend operation against a
	// local-only collection.
	ErrCodeLocalCollection ValidationErrorCode = "LOCAL_COLLECTION"

	// ErrCodeNoBackend indicates a fetch or subscribe without a
	// configured backend.
	ErrCodeNoBackend ValidationErrorCode = "NO_BACKEND"

	// ErrCodeBadEventType indicates a listener registration for a type
	// that does not exist.
	ErrCodeBadEventType ValidationErrorCode = "BAD_EVENT_TYPE"
)

// ValidationError reports invalid caller input. Validation errors are
// returned synchronously and never terminate the model.
type ValidationError struct {
	Code    ValidationErrorCode
	Message string
	Path    string
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidationError reports whether err is a ValidationError. Uses
// errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func newValidationError(code ValidationErrorCode, path, format string, args ...any) *ValidationError {
	return &ValidationError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}
