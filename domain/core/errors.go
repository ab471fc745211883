package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Upstream data errors
	ErrUpstreamData   = errors.New("upstream data unavailable")
	ErrNotFound       = fmt.Errorf("%w: file not found", ErrUpstreamData)
	ErrMalformedInput = errors.New("malformed input")

	// Computation errors
	ErrComputation            = errors.New("statistic computation failed")
	ErrInsufficientData       = fmt.Errorf("%w: insufficient data for analysis", ErrComputation)
	ErrDegenerateDistribution = fmt.Errorf("%w: degenerate distribution", ErrComputation)
	ErrResourceExhausted      = errors.New("resource exhausted")
	ErrWindowTimeout          = errors.New("window computation timed out")

	// Output errors
	ErrOutputIO = errors.New("output write failed")
)

// Error constructors with context
func NewNotFoundError(resource string, path string) error {
	return fmt.Errorf("%w: %s at %s", ErrNotFound, resource, path)
}

func NewMalformedError(source string, line int, reason string) error {
	return fmt.Errorf("%w: %s line %d: %s", ErrMalformedInput, source, line, reason)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// Error checking helpers
func IsUpstreamError(err error) bool {
	return errors.Is(err, ErrUpstreamData)
}

func IsComputationError(err error) bool {
	return errors.Is(err, ErrComputation) ||
		errors.Is(err, ErrMalformedInput)
}
