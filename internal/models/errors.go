package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery is returned when a region query is malformed or out of range.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInsufficientData is returned when a selection is too small or too
	// uniform for a regression. It is a result state, not a failure.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUpstreamUnavailable wraps failures of the geocoder or the listing source.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrNotFound is returned by the geocoder when nothing matches the text.
	ErrNotFound = errors.New("not found")
)

// QueryError describes which query parameter was rejected.
type QueryError struct {
	Field  string
	Reason string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid query [%s]: %s", e.Field, e.Reason)
}

func (e *QueryError) Unwrap() error {
	return ErrInvalidQuery
}

// NewQueryError creates a QueryError for the given field.
func NewQueryError(field, format string, args ...interface{}) *QueryError {
	return &QueryError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// UpstreamError marks a failure of an external collaborator.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Is lets errors.Is match ErrUpstreamUnavailable while Unwrap still exposes
// the underlying cause.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError wraps err as an upstream failure of op.
func NewUpstreamError(op string, err error) *UpstreamError {
	return &UpstreamError{Op: op, Err: err}
}
