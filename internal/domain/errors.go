package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrConcurrencyConflict = errors.New("concurrent modification")
	ErrPersistence         = errors.New("persistence failure")
	ErrNotFound            = errors.New("not found")
)

// ValidationError rejects a request before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// InvalidTransitionError is returned by Advance when the current status has
// no default next status.
type InvalidTransitionError struct {
	ReservationID int32
	From          ReservationStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("reservation %d: no next status after %q", e.ReservationID, e.From)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// ConcurrencyConflictError means the caller's snapshot is stale and the
// operation must be retried against a fresh one.
type ConcurrencyConflictError struct {
	Entity          string
	ID              int32
	ExpectedVersion int64
	Op              string
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("%s %d changed concurrently during %s (expected version %d)", e.Entity, e.ID, e.Op, e.ExpectedVersion)
}

func (e *ConcurrencyConflictError) Is(target error) bool { return target == ErrConcurrencyConflict }

// PersistenceError wraps a store failure. The operation it belongs to was
// rolled back as a whole.
type PersistenceError struct {
	Op     string
	Entity string
	ID     int32
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s %d: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Entity string
	ID     int32
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
