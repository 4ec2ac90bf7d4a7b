package pde

import (
	"errors"
	"fmt"
)

// Domain errors for simulation runs.
var (
	// ErrNonFinite indicates the field picked up a NaN or Inf during a step.
	ErrNonFinite = errors.New("pde: field contains NaN or Inf")

	// ErrSolve indicates the linear solver rejected the step system.
	ErrSolve = errors.New("pde: linear solve failed")

	// ErrUnknownKind indicates a simulation kind outside the supported set.
	ErrUnknownKind = errors.New("pde: unknown simulation kind")
)

// ValidationError reports a parameter that is missing, not coercible or out
// of range. The caller can always recover by fixing the input.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("pde: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// SimulationError wraps a failure raised while stepping. The run is
// abandoned; Step is the 1-based step that failed.
type SimulationError struct {
	Kind Kind
	Step int
	Err  error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("pde: %s simulation failed at step %d: %v", e.Kind, e.Step, e.Err)
}

func (e *SimulationError) Unwrap() error {
	return e.Err
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
