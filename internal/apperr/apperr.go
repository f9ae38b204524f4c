// Package apperr defines the error kinds returned by the forum core.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable category of an error.
type Kind string

const (
	KindMissingCredential Kind = "missing_credential"
	KindInvalidCredential Kind = "invalid_credential"
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindValidation        Kind = "validation_error"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal"
)

// Error carries a kind, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, apperr.ErrNotFound) matches any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrMissingCredential = &Error{Kind: KindMissingCredential, Message: "missing credential"}
	ErrInvalidCredential = &Error{Kind: KindInvalidCredential, Message: "invalid credential"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrForbidden         = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflict"}
	ErrInternal          = &Error{Kind: KindInternal, Message: "internal error"}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Forbidden(message string) *Error  { return New(KindForbidden, message) }
func Validation(message string) *Error { return New(KindValidation, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }

// Internal wraps an unexpected failure, typically from the store.
func Internal(err error, message string) *Error {
	return Wrap(KindInternal, err, message)
}

// KindOf returns the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the human-readable message of err. Causes of internal
// errors are not exposed.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ErrInternal.Message
}
