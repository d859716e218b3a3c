// Package errs defines the structured error type shared by the store and
// service layers. Every failure that crosses a component boundary is carried
// as an *Error with a stable code, so callers can branch on the code and
// surface the message to the user without unwrapping driver internals.
package errs

import (
	"errors"
	"fmt"
)

// Code classifies an error.
type Code string

const (
	// CodeUnauthenticated indicates an operation that requires a signed-in
	// owner was attempted without one.
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	// CodeInvalidArgument indicates invalid input parameters.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	// CodeStorageFailure indicates the persistence layer failed.
	CodeStorageFailure Code = "STORAGE_FAILURE"
	// CodeNotFound indicates the referenced record does not exist.
	CodeNotFound Code = "NOT_FOUND"
	// CodeServiceUnavailable indicates a required capability (location
	// services, region monitoring) is not available.
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	// CodeTimeout indicates a bounded wait expired.
	CodeTimeout Code = "TIMEOUT"
	// CodeCanceled indicates the operation was superseded or canceled.
	CodeCanceled Code = "CANCELED"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Unauthenticated creates an unauthenticated error.
func Unauthenticated(msg string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *Error {
	return &Error{Code: CodeInvalidArgument, Message: msg}
}

// StorageFailure wraps a persistence failure.
func StorageFailure(msg string, cause error) *Error {
	return &Error{Code: CodeStorageFailure, Message: msg, Cause: cause}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// ServiceUnavailable creates a service unavailable error.
func ServiceUnavailable(msg string) *Error {
	return &Error{Code: CodeServiceUnavailable, Message: msg}
}

// Timeout creates a timeout error.
func Timeout(msg string) *Error {
	return &Error{Code: CodeTimeout, Message: msg}
}

// Canceled wraps a cancellation.
func Canceled(cause error) *Error {
	return &Error{Code: CodeCanceled, Message: "operation canceled", Cause: cause}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// IsCode reports whether err (or anything it wraps) carries the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the code from err, falling back to the provided default.
func CodeOf(err error, fallback Code) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return fallback
}
