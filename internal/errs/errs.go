// Package errs classifies pipeline failures so callers can report a
// category alongside the underlying cause.
package errs

import (
	"errors"
	"fmt"
)

// Kind is the category of a pipeline failure
type Kind string

const (
	KindSession    Kind = "SessionError"
	KindNavigation Kind = "NavigationError"
	KindStructural Kind = "StructuralError"
	KindValidation Kind = "ValidationError"
	KindPublish    Kind = "PublishError"
)

// Error wraps a cause with its category and the operation that failed.
// Status is the observed page status for navigation failures, zero otherwise.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithStatus creates a classified error carrying a page status
func WithStatus(kind Kind, op string, status int, err error) *Error {
	return &Error{Kind: kind, Op: op, Status: status, Err: err}
}

// Validation is shorthand for a caller input error
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: "validate", Err: fmt.Errorf(format, args...)}
}

// KindOf returns the category of the outermost classified error in the chain,
// or an empty Kind if none is present.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given category
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
