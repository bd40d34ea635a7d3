// Package apperr defines the error taxonomy shared by every component.
// Callers classify failures with errors.Is against the kind sentinels.
package apperr

import (
	"errors"
	"fmt"
)

// Kind sentinels. Wrap them with E so errors.Is keeps working through
// the usual %w chains.
var (
	ErrNotFound     = errors.New("not found")
	ErrHashMismatch = errors.New("hash mismatch")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation error")
	ErrIngestion    = errors.New("ingestion error")
)

// Error carries a kind sentinel plus human-readable detail.
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Detail)
}

func (e *Error) Unwrap() error { return e.Kind }

// E builds a taxonomy error with formatted detail.
func E(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the taxonomy sentinel an error belongs to, or nil.
func KindOf(err error) error {
	for _, k := range []error{ErrNotFound, ErrHashMismatch, ErrInvalidState, ErrValidation, ErrIngestion} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Code returns a short machine-readable code for the error's kind,
// used by the CLI and MCP boundaries.
func Code(err error) string {
	switch KindOf(err) {
	case ErrNotFound:
		return "NotFound"
	case ErrHashMismatch:
		return "HashMismatch"
	case ErrInvalidState:
		return "InvalidState"
	case ErrValidation:
		return "ValidationError"
	case ErrIngestion:
		return "IngestionError"
	default:
		return "Internal"
	}
}
