// Package apperr holds the caller-facing failure kinds shared by the
// scheduling packages. Every kind is recoverable; transport maps them to 4xx.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidState      = errors.New("invalid state")
)

var kinds = []error{ErrValidation, ErrNotFound, ErrConflict, ErrInvalidTransition, ErrInvalidState}

// Error is a kind plus a message naming the offending id or constraint.
type Error struct {
	kind error
	msg  string
}

func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

func Validation(format string, args ...any) error {
	return New(ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return New(ErrNotFound, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return New(ErrConflict, fmt.Sprintf(format, args...))
}

func InvalidTransition(format string, args ...any) error {
	return New(ErrInvalidTransition, fmt.Sprintf(format, args...))
}

func InvalidState(format string, args ...any) error {
	return New(ErrInvalidState, fmt.Sprintf(format, args...))
}

// KindOf returns the kind sentinel err carries, or nil for infrastructure
// errors.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Code is the short machine readable name of a kind.
func Code(kind error) string {
	switch kind {
	case ErrValidation:
		return "validation"
	case ErrNotFound:
		return "not_found"
	case ErrConflict:
		return "conflict"
	case ErrInvalidTransition:
		return "invalid_transition"
	case ErrInvalidState:
		return "invalid_state"
	default:
		return "internal_error"
	}
}
