package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"camrent-backend/internal/availability"
	"camrent-backend/internal/domain"
	"camrent-backend/internal/logger"
	"camrent-backend/internal/metrics"
	"camrent-backend/internal/notify"
	"camrent-backend/internal/repository"
	"camrent-backend/internal/utils"
)

type reservationService struct {
	store      repository.Store
	reconciler CapacityReconciler
	calc       *availability.Calculator
	notifier   notify.Notifier
	clock      Clock
	locks      *KeyedMutex
	log        *slog.Logger
}

func NewReservationService(
	store repository.Store,
	reconciler CapacityReconciler,
	calc *availability.Calculator,
	notifier notify.Notifier,
	clock Clock,
	locks *KeyedMutex,
) ReservationService {
	return &reservationService{
		store:      store,
		reconciler: reconciler,
		calc:       calc,
		notifier:   notifier,
		clock:      clock,
		locks:      locks,
		log:        logger.WithService("reservation"),
	}
}

func (s *reservationService) Create(ctx context.Context, req domain.ReservationRequest) (*domain.Reservation, *domain.OverbookedWarning, error) {
	const op = "create"
	start, end, err := req.Validate(s.clock.Location)
	if err != nil {
		return nil, nil, s.fail(ctx, op, err)
	}

	resource, err := s.store.Resources().GetByID(ctx, req.ResourceID)
	if err != nil {
		return nil, nil, s.fail(ctx, op, translate(err, op, "resource", req.ResourceID, 0))
	}
	if resource.Status != domain.ResourceStatusActive {
		return nil, nil, s.fail(ctx, op, &domain.ValidationError{Field: "resourceId", Reason: fmt.Sprintf("resource is %s", resource.Status)})
	}

	// The pre-check reads a live snapshot outside the write transaction.
	// The reconciliation inside the transaction catches what it misses.
	existing, err := s.store.Reservations().List(ctx, domain.ReservationFilter{ResourceID: resource.ID})
	if err != nil {
		return nil, nil, s.fail(ctx, op, translate(err, op, "resource", resource.ID, 0))
	}
	if s.calc.Available(resource, existing, s.clock.Today()) == 0 {
		return nil, nil, s.fail(ctx, op, &domain.ValidationError{Field: "resourceId", Reason: "no units available"})
	}

	days, err := utils.InclusiveDays(start, end)
	if err != nil {
		return nil, nil, s.fail(ctx, op, &domain.ValidationError{Field: "endDate", Reason: err.Error()})
	}
	now := s.clock.Now()
	rv := &domain.Reservation{
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		ResourceID:    resource.ID,
		ResourceName:  resource.Name,
		StartDate:     utils.FormatDate(start),
		EndDate:       utils.FormatDate(end),
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		TotalDays:     days,
		DailyRate:     resource.DailyRate,
		TotalAmount:   float64(days) * resource.DailyRate,
		CreatedAt:     now,
		Notes:         req.Notes,
	}
	actor := req.Actor
	if actor == "" {
		actor = rv.CustomerEmail
	}
	rv.AppendStatusChange(domain.ReservationStatusPending, actor, "", now)

	unlock := s.locks.Lock(resource.ID)
	defer unlock()

	var result *ReconcileResult
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if err := tx.Reservations().Create(ctx, rv); err != nil {
			return translate(err, op, "reservation", 0, 0)
		}
		var err error
		result, err = s.reconciler.ReconcileTx(ctx, tx, resource.ID)
		return err
	})
	if err != nil {
		return nil, nil, s.fail(ctx, op, translate(err, op, "reservation", 0, 0))
	}

	metrics.IncReservationCreated()
	s.log.InfoContext(ctx, "Reservation created", "reservationID", rv.ID, "resourceID", rv.ResourceID,
		"startDate", rv.StartDate, "endDate", rv.EndDate, "totalAmount", rv.TotalAmount)
	s.notifier.Notify(ctx, domain.NotificationSuccess,
		fmt.Sprintf("Reservation #%d for %s created (%s to %s)", rv.ID, rv.ResourceName, rv.StartDate, rv.EndDate))
	return rv, s.overbooked(ctx, result, rv.ID), nil
}

func (s *reservationService) Advance(ctx context.Context, id int32, expectedVersion int64, actor string) (*domain.Reservation, error) {
	return s.transition(ctx, "advance", id, expectedVersion, actor, "", func(rv *domain.Reservation) (domain.ReservationStatus, error) {
		next, ok := rv.Status.Next()
		if !ok {
			return "", &domain.InvalidTransitionError{ReservationID: rv.ID, From: rv.Status}
		}
		return next, nil
	})
}

func (s *reservationService) SetStatus(ctx context.Context, req domain.StatusChangeRequest) (*domain.Reservation, error) {
	if !req.NewStatus.IsValid() {
		return nil, s.fail(ctx, "setStatus", &domain.ValidationError{Field: "newStatus", Reason: fmt.Sprintf("unknown status %q", req.NewStatus)})
	}
	if err := requireVersion(req.ExpectedVersion); err != nil {
		return nil, s.fail(ctx, "setStatus", err)
	}
	return s.transition(ctx, "setStatus", req.ReservationID, req.ExpectedVersion, req.Actor, req.Note,
		func(*domain.Reservation) (domain.ReservationStatus, error) {
			return req.NewStatus, nil
		})
}

// transition applies the status chosen by decide, appends exactly one log
// entry and reconciles capacity, all in one transaction.
func (s *reservationService) transition(
	ctx context.Context,
	op string,
	id int32,
	expectedVersion int64,
	actor, note string,
	decide func(rv *domain.Reservation) (domain.ReservationStatus, error),
) (*domain.Reservation, error) {
	logger.EnterMethod("reservationService."+op, "reservationID", id, "expectedVersion", expectedVersion, "actor", actor)
	if strings.TrimSpace(actor) == "" {
		err := s.fail(ctx, op, &domain.ValidationError{Field: "actor", Reason: "is required"})
		logger.ExitMethodWithError("reservationService."+op, err, "reservationID", id)
		return nil, err
	}

	current, err := s.store.Reservations().GetByID(ctx, id)
	if err != nil {
		err = s.fail(ctx, op, translate(err, op, "reservation", id, expectedVersion))
		logger.ExitMethodWithError("reservationService."+op, err, "reservationID", id)
		return nil, err
	}
	unlock := s.locks.Lock(current.ResourceID)
	defer unlock()

	var updated *domain.Reservation
	var result *ReconcileResult
	var from domain.ReservationStatus
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		rv, err := tx.Reservations().GetByID(ctx, id)
		if err != nil {
			return translate(err, op, "reservation", id, expectedVersion)
		}
		if err := checkVersion(op, rv, expectedVersion); err != nil {
			return err
		}
		next, err := decide(rv)
		if err != nil {
			return err
		}

		from = rv.Status
		version := rv.Version
		change := rv.AppendStatusChange(next, actor, note, s.clock.Now())
		if rv.Version, err = tx.Reservations().AppendStatus(ctx, id, version, change); err != nil {
			return translate(err, op, "reservation", id, version)
		}
		if result, err = s.reconciler.ReconcileTx(ctx, tx, rv.ResourceID); err != nil {
			return err
		}
		updated = rv
		return nil
	})
	if err != nil {
		err = s.fail(ctx, op, translate(err, op, "reservation", id, expectedVersion))
		logger.ExitMethodWithError("reservationService."+op, err, "reservationID", id)
		return nil, err
	}

	metrics.IncTransition(string(from), string(updated.Status))
	s.log.InfoContext(ctx, "Reservation status changed", "reservationID", id, "from", from, "to", updated.Status, "actor", actor)
	s.notifier.Notify(ctx, domain.NotificationSuccess,
		fmt.Sprintf("Reservation #%d moved from %s to %s", id, from, updated.Status))
	s.overbooked(ctx, result, id)
	logger.ExitMethod("reservationService."+op, "reservationID", id, "status", updated.Status, "version", updated.Version)
	return updated, nil
}

func (s *reservationService) Delete(ctx context.Context, id int32, expectedVersion int64, actor string) error {
	const op = "delete"
	if err := requireVersion(expectedVersion); err != nil {
		return s.fail(ctx, op, err)
	}
	current, err := s.store.Reservations().GetByID(ctx, id)
	if err != nil {
		return s.fail(ctx, op, translate(err, op, "reservation", id, expectedVersion))
	}
	unlock := s.locks.Lock(current.ResourceID)
	defer unlock()

	var deleted *domain.Reservation
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		rv, err := tx.Reservations().GetByID(ctx, id)
		if err != nil {
			return translate(err, op, "reservation", id, expectedVersion)
		}
		if err := checkVersion(op, rv, expectedVersion); err != nil {
			return err
		}
		if err := tx.Reservations().Delete(ctx, id, rv.Version); err != nil {
			return translate(err, op, "reservation", id, rv.Version)
		}
		if _, err := s.reconciler.ReconcileTx(ctx, tx, rv.ResourceID); err != nil {
			return err
		}
		deleted = rv
		return nil
	})
	if err != nil {
		return s.fail(ctx, op, translate(err, op, "reservation", id, expectedVersion))
	}

	s.log.InfoContext(ctx, "Reservation deleted", "reservationID", id, "status", deleted.Status, "actor", actor)
	s.notifier.Notify(ctx, domain.NotificationSuccess, fmt.Sprintf("Reservation #%d deleted", id))
	return nil
}

func (s *reservationService) Get(ctx context.Context, id int32) (*domain.Reservation, error) {
	rv, err := s.store.Reservations().GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "get", "reservation", id, 0)
	}
	return rv, nil
}

func (s *reservationService) List(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", filter.Status)}
	}
	list, err := s.store.Reservations().List(ctx, filter)
	if err != nil {
		return nil, translate(err, "list", "reservation", 0, 0)
	}
	return list, nil
}

func (s *reservationService) UpdateAdminNotes(ctx context.Context, id int32, expectedVersion int64, notes string) (*domain.Reservation, error) {
	const op = "updateAdminNotes"
	var updated *domain.Reservation
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		rv, err := tx.Reservations().GetByID(ctx, id)
		if err != nil {
			return translate(err, op, "reservation", id, expectedVersion)
		}
		if err := checkVersion(op, rv, expectedVersion); err != nil {
			return err
		}
		if rv.Version, err = tx.Reservations().UpdateAdminNotes(ctx, id, rv.Version, notes); err != nil {
			return translate(err, op, "reservation", id, rv.Version)
		}
		rv.AdminNotes = notes
		updated = rv
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, op, translate(err, op, "reservation", id, expectedVersion))
	}
	return updated, nil
}

// requireVersion rejects a missing version on operator overrides and deletes,
// where accepting the stored version would let a concurrent write go unseen.
func requireVersion(expectedVersion int64) error {
	if expectedVersion <= 0 {
		return &domain.ValidationError{Field: "expectedVersion", Reason: "is required"}
	}
	return nil
}

func checkVersion(op string, rv *domain.Reservation, expectedVersion int64) error {
	if expectedVersion != 0 && rv.Version != expectedVersion {
		return &domain.ConcurrencyConflictError{Entity: "reservation", ID: rv.ID, ExpectedVersion: expectedVersion, Op: op}
	}
	return nil
}

// fail records err and reports persistence failures to staff. It returns
// err unchanged.
func (s *reservationService) fail(ctx context.Context, op string, err error) error {
	class := errorClass(err)
	metrics.IncOperationError(op, class)
	if class == "persistence" {
		s.log.ErrorContext(ctx, "Reservation operation failed", "operation", op, "error", err)
		s.notifier.Notify(ctx, domain.NotificationError, fmt.Sprintf("Could not %s reservation: %v", op, err))
	} else {
		s.log.WarnContext(ctx, "Reservation operation rejected", "operation", op, "error", err)
	}
	return err
}

// overbooked warns staff when reconciliation found more demand than units.
func (s *reservationService) overbooked(ctx context.Context, result *ReconcileResult, reservationID int32) *domain.OverbookedWarning {
	if result == nil || !result.Overbooked {
		return nil
	}
	metrics.IncOverbooked()
	w := &domain.OverbookedWarning{
		ResourceID:    result.ResourceID,
		ResourceName:  result.ResourceName,
		ReservationID: reservationID,
		Demand:        result.Demand,
		TotalUnits:    result.TotalUnits,
	}
	s.notifier.Notify(ctx, domain.NotificationWarning, w.Message())
	return w
}
