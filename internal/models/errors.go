package models

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. Callers classify failures with errors.Is.
var (
	// ErrValidation is missing or malformed input; the caller can correct it.
	ErrValidation = errors.New("validation error")

	// ErrUpstreamUnavailable is a transport failure or timeout talking to the embedding model,
	// generation model, similarity index or record store. Retryable at the caller's discretion.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrDimensionMismatch is a vector whose length differs from the index dimensionality.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrEmptyResult is a model call that returned no output for an input.
	ErrEmptyResult = errors.New("empty result")

	// ErrNotFound is a lookup of a record that does not exist.
	ErrNotFound = errors.New("not found")
)

// DimensionError reports the expected and actual vector lengths.
// It matches ErrDimensionMismatch via errors.Is.
type DimensionError struct {
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// Validationf returns an ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Upstream tags err as ErrUpstreamUnavailable for the named service.
// Errors that already carry a kind (validation, dimension, empty result, not found) keep it.
func Upstream(service string, err error) error {
	if err == nil {
		return nil
	}
	if HasKind(err) {
		return fmt.Errorf("%s: %w", service, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s timed out: %w", ErrUpstreamUnavailable, service, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, service, err)
}

// HasKind reports whether err is already classified as one of the error kinds.
func HasKind(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrEmptyResult) ||
		errors.Is(err, ErrNotFound)
}
