package model

import (
	"errors"
	"fmt"
)

// Error kinds. Test with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrDependency = errors.New("dependency unavailable")
)

// Error is a failure tagged with one of the error kinds above.
type Error struct {
	Kind error  // one of ErrValidation, ErrNotFound, ErrConflict, ErrDependency
	Op   string // operation or field the failure belongs to
	Msg  string
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Validation reports malformed input for field.
func Validation(field, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Op: field, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity.
func NotFound(what, id string) error {
	return &Error{Kind: ErrNotFound, Op: what, Msg: fmt.Sprintf("%s not found", id)}
}

// Conflict reports a duplicate or a stale-status race.
func Conflict(op, format string, args ...any) error {
	return &Error{Kind: ErrConflict, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Dependency wraps a store or transport failure.
func Dependency(op string, err error) error {
	return &Error{Kind: ErrDependency, Op: op, Msg: "dependency unavailable", Err: err}
}
