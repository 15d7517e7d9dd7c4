// Package errorhandling defines the error kinds that cross the boundary
// between the core scheduling/dispatch logic and the control API, plus the
// kinds that are recovered locally and never surface to a caller.
package errorhandling

import (
	"errors"
	"fmt"
)

// ValidationError wraps the human-readable error list the DAG validator
// produces. It maps to HTTP 400.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("workflow definition invalid: %d error(s)", len(e.Errors))
}

// NewValidationError builds a ValidationError from a validator error list.
// Returns nil if errs is empty, so callers can do:
//
//	if err := NewValidationError(errs); err != nil { ... }
func NewValidationError(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

// ErrNotFound maps to HTTP 404. The workflow handler uses its text for 404
// responses; the storage layer reports missing rows with storage.ErrNotFound.
var ErrNotFound = errors.New("not found")

// ErrConflict maps to HTTP 409 (duplicate workflow id on registration).
var ErrConflict = errors.New("already exists")

// ErrAuthFailure maps to HTTP 401 (missing or wrong X-API-Key).
var ErrAuthFailure = errors.New("authentication failed")

// DispatchError records a worker-dispatch failure (non-200 response or
// transport/timeout error). It is never returned to an API caller; the
// dispatch client recovers from it by reverting the task instance to PENDING
// and logging. Kept as a typed error so callers can classify it with errors.As.
type DispatchError struct {
	Worker string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to worker %s failed: %v", e.Worker, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// SchedulerTickError wraps any error raised while processing one run within
// a tick. The scheduler logs and swallows it so the loop survives.
type SchedulerTickError struct {
	RunID string
	Err   error
}

func (e *SchedulerTickError) Error() string {
	return fmt.Sprintf("scheduler tick failed for run %s: %v", e.RunID, e.Err)
}

func (e *SchedulerTickError) Unwrap() error {
	return e.Err
}
