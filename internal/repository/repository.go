package repository

import (
	"context"
	"errors"

	"camrent-backend/internal/domain"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("record version changed")
)

// Change notification topics published by store adapters after commit.
const (
	TopicResources    = "resources"
	TopicReservations = "reservations"
)

// ChangePublisher receives a signal per topic whenever committed data changes.
type ChangePublisher interface {
	Publish(topic string)
}

type ResourceRepository interface {
	Create(ctx context.Context, res *domain.Resource) error
	GetByID(ctx context.Context, id int32) (*domain.Resource, error)
	// GetForUpdate reads the resource and holds it until the surrounding
	// transaction ends. Outside a transaction it behaves like GetByID.
	GetForUpdate(ctx context.Context, id int32) (*domain.Resource, error)
	List(ctx context.Context) ([]domain.Resource, error)
	// UpdateAvailability writes cachedAvailable if the stored version still
	// equals expectedVersion and returns the new version.
	UpdateAvailability(ctx context.Context, id int32, expectedVersion int64, available int) (int64, error)
}

type ReservationRepository interface {
	// Create inserts the reservation together with its status log and sets
	// ID and Version.
	Create(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id int32) (*domain.Reservation, error)
	List(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error)
	// AppendStatus sets the status, appends change to the log and bumps the
	// version, all guarded by expectedVersion.
	AppendStatus(ctx context.Context, id int32, expectedVersion int64, change domain.StatusChange) (int64, error)
	UpdateAdminNotes(ctx context.Context, id int32, expectedVersion int64, notes string) (int64, error)
	Delete(ctx context.Context, id int32, expectedVersion int64) error
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id int32) error
}

// Tx exposes the repositories bound to one unit of work.
type Tx interface {
	Resources() ResourceRepository
	Reservations() ReservationRepository
}

// TxRunner runs fn atomically: either every write made through tx is
// committed or none is.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Store is a store adapter. The embedded Tx reads and writes outside any
// explicit transaction.
type Store interface {
	Tx
	TxRunner
	Notifications() NotificationRepository
	Ping(ctx context.Context) error
}

// Snapshotter loads full snapshots of the catalog and the reservation set.
type Snapshotter interface {
	ResourceSnapshot(ctx context.Context) ([]domain.Resource, error)
	ReservationSnapshot(ctx context.Context) ([]domain.Reservation, error)
}

type storeSnapshots struct{ tx Tx }

// StoreSnapshots reads snapshots straight from tx.
func StoreSnapshots(tx Tx) Snapshotter { return storeSnapshots{tx: tx} }

func (s storeSnapshots) ResourceSnapshot(ctx context.Context) ([]domain.Resource, error) {
	return s.tx.Resources().List(ctx)
}

func (s storeSnapshots) ReservationSnapshot(ctx context.Context) ([]domain.Reservation, error) {
	return s.tx.Reservations().List(ctx, domain.ReservationFilter{})
}
