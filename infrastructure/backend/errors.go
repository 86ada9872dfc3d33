package backend

import (
	"errors"
	"fmt"
)

// Error represents a failure reported by or while reaching the backend.
type Error struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

// NewError creates a new backend Error.
func NewError(operation string, statusCode int, message string, err error) *Error {
	return &Error{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("backend %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend %s: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the error is worth retrying: server-side
// failures and transport errors are, client errors (4xx) are not.
func (e *Error) IsRetryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// AsBackendError extracts an *Error from err, if present.
func AsBackendError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
