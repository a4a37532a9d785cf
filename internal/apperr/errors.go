package apperr

import (
	"errors"
	"fmt"
)

// DomainError represents an error surfaced to the caller of a forum operation
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target carries the same code, so wrapped errors
// still match the sentinels below with errors.Is.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error
func New(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Wrap returns an error with the code of base, a more specific message and an
// optional cause.
func Wrap(base *DomainError, message string, cause error) *DomainError {
	if message == "" {
		message = base.Message
	}
	return &DomainError{
		Code:    base.Code,
		Message: message,
		cause:   cause,
	}
}

// Error codes
const (
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeTransientIO      = "TRANSIENT_IO"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeUnauthenticated  = "UNAUTHENTICATED"
)

var (
	ErrPermissionDenied = New(CodePermissionDenied, "Not allowed to perform this action")
	ErrNotFound         = New(CodeNotFound, "Resource not found")
	ErrConflict         = New(CodeConflict, "Resource was modified concurrently, please retry")
	ErrTransientIO      = New(CodeTransientIO, "Backend temporarily unavailable")
	ErrInvalidInput     = New(CodeInvalidInput, "Invalid input provided")
	ErrUnauthenticated  = New(CodeUnauthenticated, "Authentication required")
)

// CodeOf extracts the code of a domain error, or "" for any other error
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
