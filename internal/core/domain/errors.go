package domain

import (
	"strings"
)

// Code identifies a DomainError, e.g. "TT-SESS-4040". Two errors with the
// same code match under errors.Is.
type Code string

// Category returns the middle part of the code ("SESS" for TT-SESS-4040).
func (c Code) Category() string {
	parts := strings.Split(string(c), "-")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

// DomainError is an error of the token tables carrying a stable code.
// The predefined errors below are templates; WithDetails and WithCause
// return copies and never modify the template.
type DomainError struct {
	Code    Code
	Message string
	Details string
	Cause   error
}

func newError(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Code))
	b.WriteString("] ")
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString(": ")
		b.WriteString(e.Details)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

// WithDetails returns a copy carrying details.
func (e *DomainError) WithDetails(details string) *DomainError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCause returns a copy wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// Session errors.
var (
	ErrSessionNotFound  = newError("TT-SESS-4040", "session not found")
	ErrSessionNotShared = newError("TT-SESS-4001", "session is not shared")
)

// Token errors.
var (
	ErrTokenNotFound = newError("TT-TOKN-4040", "token not found")
	// ErrMalformedRecord is returned when a stored value or timing record
	// cannot be decoded.
	ErrMalformedRecord = newError("TT-TOKN-4000", "malformed record")
)

// System errors.
var (
	ErrInternal = newError("TT-SYS-5000", "internal error")
	// ErrStorageError wraps every failure reported by the storage
	// collaborator.
	ErrStorageError = newError("TT-SYS-5001", "storage error")
)

// Argument errors.
var (
	ErrInvalidArgument = newError("TT-ARG-1001", "invalid argument")
	ErrMissingArgument = newError("TT-ARG-1002", "missing required argument")
)
