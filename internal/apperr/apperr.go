// Package apperr provides the coded error type shared by the roster engine,
// the alert dispatcher and the storage backends.
package apperr

import "errors"

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeNotRegistered      Code = "NOT_REGISTERED"
	CodeSessionCancelled   Code = "SESSION_CANCELLED"
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"
	CodeNotifyFailure      Code = "NOTIFY_FAILURE"
)

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrInvalidArgument    = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrNotRegistered      = &Error{Code: CodeNotRegistered, Message: "player is not registered"}
	ErrSessionCancelled   = &Error{Code: CodeSessionCancelled, Message: "session is cancelled"}
	ErrPersistenceFailure = &Error{Code: CodePersistenceFailure, Message: "persistence failure"}
	ErrNotifyFailure      = &Error{Code: CodeNotifyFailure, Message: "notify failure"}
)

// Error is the domain error type.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Internal message (for logs)
	Cause   error  // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// Persistence wraps a storage error unless it already carries a code, so
// NotFound from a backend is not flattened into a generic failure.
func Persistence(message string, cause error) error {
	if cause == nil {
		return nil
	}
	var e *Error
	if errors.As(cause, &e) {
		return cause
	}
	return Wrap(CodePersistenceFailure, message, cause)
}
