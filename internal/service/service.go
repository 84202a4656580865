package service

import (
	"context"
	"time"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/repository"
)

// ReservationService drives reservations through their lifecycle. Every
// write reconciles the owning resource's cached availability in the same
// transaction. An expectedVersion of 0 accepts whatever version is stored,
// except for SetStatus and Delete, which require the caller's version.
type ReservationService interface {
	Create(ctx context.Context, req domain.ReservationRequest) (*domain.Reservation, *domain.OverbookedWarning, error)
	Advance(ctx context.Context, id int32, expectedVersion int64, actor string) (*domain.Reservation, error)
	SetStatus(ctx context.Context, req domain.StatusChangeRequest) (*domain.Reservation, error)
	Delete(ctx context.Context, id int32, expectedVersion int64, actor string) error
	Get(ctx context.Context, id int32) (*domain.Reservation, error)
	List(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error)
	UpdateAdminNotes(ctx context.Context, id int32, expectedVersion int64, notes string) (*domain.Reservation, error)
}

// CapacityReconciler recomputes a resource's cached availability from its
// reservations.
type CapacityReconciler interface {
	Reconcile(ctx context.Context, resourceID int32) (*ReconcileResult, error)
	ReconcileAll(ctx context.Context) ([]ReconcileResult, error)
	// ReconcileTx runs inside a caller's transaction. The caller must hold
	// the resource's lock.
	ReconcileTx(ctx context.Context, tx repository.Tx, resourceID int32) (*ReconcileResult, error)
}

type AvailabilityService interface {
	Board(ctx context.Context, asOf time.Time, offerableOnly bool) ([]domain.ResourceAvailability, error)
	ForResource(ctx context.Context, resourceID int32, from, to time.Time) ([]domain.DayAvailability, error)
}

type CalendarService interface {
	EventsForDay(ctx context.Context, day time.Time) ([]domain.CalendarEvent, error)
	EventsForRange(ctx context.Context, from, to time.Time) ([]domain.DaySchedule, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id int32) error
}
