package service

import (
	"errors"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/repository"
)

func isDomainError(err error) bool {
	for _, target := range []error{domain.ErrValidation, domain.ErrInvalidTransition,
		domain.ErrConcurrencyConflict, domain.ErrPersistence, domain.ErrNotFound} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// translate maps store errors onto the domain taxonomy. Errors that are
// already domain errors pass through unchanged.
func translate(err error, op, entity string, id int32, expectedVersion int64) error {
	switch {
	case err == nil:
		return nil
	case isDomainError(err):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return &domain.NotFoundError{Entity: entity, ID: id}
	case errors.Is(err, repository.ErrVersionConflict):
		return &domain.ConcurrencyConflictError{Entity: entity, ID: id, ExpectedVersion: expectedVersion, Op: op}
	default:
		return &domain.PersistenceError{Op: op, Entity: entity, ID: id, Err: err}
	}
}

// errorClass names the taxonomy member of err for metrics.
func errorClass(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence"
	}
	return "unknown"
}
