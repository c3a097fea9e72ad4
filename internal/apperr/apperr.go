// Package apperr defines the typed failure kinds surfaced by the ledger.
// Business-rule violations keep their specific kind; unexpected persistence
// failures are wrapped as Database so internal detail never leaks to callers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind enumerates the failure categories callers must handle.
type Kind int

const (
	Unknown Kind = iota
	NotFound
	Unauthorized
	Validation
	Conflict
	Database
)

// String returns the wire code for the kind.
func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NOT_FOUND"
	case Unauthorized:
		return "UNAUTHORIZED"
	case Validation:
		return "VALIDATION_ERROR"
	case Conflict:
		return "CONFLICT"
	case Database:
		return "DATABASE_ERROR"
	}
	return "UNKNOWN_ERROR"
}

// Error is a failure with a kind, a caller-safe message and an optional cause.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the failure category.
func (e *Error) Kind() Kind { return e.kind }

// New builds an error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{kind: kind, msg: msg}
}

// Newf builds an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, msg: msg, err: err}
}

// KindOf classifies any error. Errors that are not *Error report Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return Unknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
