package common

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds shared by the codec, store and orchestrator. Use errors.Is to
// classify an error returned from any layer.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCorruptMetadata   = errors.New("corrupt metadata")
	ErrIOFailure         = errors.New("io failure")
	ErrNetworkFailure    = errors.New("network failure")
	ErrTimeout           = errors.New("timeout")
	ErrValidation        = errors.New("validation failure")
)

// Error carries the kind of failure plus the operation that produced it.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewNotFoundError(op, message string) error {
	return &Error{Kind: ErrNotFound, Op: op, Message: message}
}

func NewUnsupportedFormatError(op, message string) error {
	return &Error{Kind: ErrUnsupportedFormat, Op: op, Message: message}
}

func NewCorruptMetadataError(op string, err error) error {
	return &Error{Kind: ErrCorruptMetadata, Op: op, Err: err}
}

func NewIOError(op string, err error) error {
	return &Error{Kind: ErrIOFailure, Op: op, Err: err}
}

func NewValidationError(op, message string) error {
	return &Error{Kind: ErrValidation, Op: op, Message: message}
}

// NewNetworkError classifies a transport error, mapping deadline expiry to
// ErrTimeout so callers can tell a slow service from a broken one.
func NewNetworkError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return &Error{Kind: ErrTimeout, Op: op, Err: err}
	}
	return &Error{Kind: ErrNetworkFailure, Op: op, Err: err}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// KindOf returns the short name of the error kind for reporting.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrUnsupportedFormat):
		return "UnsupportedFormat"
	case errors.Is(err, ErrCorruptMetadata):
		return "CorruptMetadata"
	case errors.Is(err, ErrIOFailure):
		return "IOFailure"
	case errors.Is(err, ErrTimeout):
		return "Timeout"
	case errors.Is(err, ErrNetworkFailure):
		return "NetworkFailure"
	case errors.Is(err, ErrValidation):
		return "ValidationFailure"
	default:
		return "Unknown"
	}
}
