// Package apperr defines the error taxonomy shared by every quire component.
//
// Each fallible operation reports one of a small set of kinds. Callers test
// for a kind with errors.Is against the sentinels below, or recover it with
// KindOf when the kind has to cross a boundary (HTTP status, exit code).
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind int

const (
	// KindIO is a storage or process-spawn failure not attributable to input.
	KindIO Kind = iota + 1
	// KindInvalidInput means a caller-supplied value is unusable.
	KindInvalidInput
	// KindNotFound means a referenced entity does not exist.
	KindNotFound
	// KindConflict means an optimistic concurrency check failed.
	KindConflict
)

// Sentinels matched by errors.Is for every *Error of the same kind.
var (
	ErrIO           = errors.New("I/O error")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// String returns the snake_case name used on the wire.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	}
	return ErrIO
}

// Error is a classified error with a human-readable message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	prefix := e.Kind.sentinel().Error()
	switch {
	case e.Msg == "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Msg)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// NotFound returns a KindNotFound error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// InvalidInput returns a KindInvalidInput error.
func InvalidInput(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// Conflict returns a KindConflict error.
func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// IO wraps err as a KindIO error. msg may be empty.
func IO(err error, msg string) error {
	return &Error{Kind: KindIO, Msg: msg, Err: err}
}

// KindOf reports the kind of err. Unclassified non-nil errors are KindIO.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrConflict):
		return KindConflict
	}
	return KindIO
}
