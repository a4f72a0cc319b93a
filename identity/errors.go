package identity

import (
	"errors"
	"fmt"
)

// Kind classifies the outcome of a call to the identity service. Every
// failure is mapped to exactly one kind at the client boundary.
type Kind string

const (
	KindOK                 Kind = "ok"
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindServiceUnavailable Kind = "service_unavailable"
	KindCreationFailure    Kind = "creation_failure"
	KindSyncFailure        Kind = "sync_failure"
)

// Error is a classified identity service failure
type Error struct {
	Kind   Kind
	Op     string // client operation, e.g. "validate"
	Status int    // HTTP status when a response was received
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("identity %s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is checks
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrServiceUnavailable = &Error{Kind: KindServiceUnavailable}
	ErrCreationFailure    = &Error{Kind: KindCreationFailure}
	ErrSyncFailure        = &Error{Kind: KindSyncFailure}
)

// KindOf returns the kind carried by err. A nil error is KindOK; an error
// that never went through the client is treated as the service being
// unavailable.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServiceUnavailable
}

func newError(kind Kind, op string, status int, cause error) *Error {
	return &Error{Kind: kind, Op: op, Status: status, Cause: cause}
}
