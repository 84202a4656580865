package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"camrent-backend/internal/availability"
	"camrent-backend/internal/domain"
	"camrent-backend/internal/repository"
	"camrent-backend/internal/repository/memory"
	"camrent-backend/internal/service"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errDisk = errors.New("disk full")

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, kind domain.NotificationKind, message string) {
	m.Called(ctx, kind, message)
}

func (m *MockNotifier) count(kind domain.NotificationKind) int {
	n := 0
	for _, c := range m.Calls {
		if c.Arguments.Get(1) == kind {
			n++
		}
	}
	return n
}

// faultyStore wraps the memory store and fails selected writes.
type faultyStore struct {
	*memory.Store
	failAppend       bool
	failAvailability bool
	// hideFromPrecheck makes reads outside a transaction miss reservations,
	// as a snapshot taken before a concurrent write would.
	hideFromPrecheck bool
}

func (s *faultyStore) Reservations() repository.ReservationRepository {
	return &faultyReservations{ReservationRepository: s.Store.Reservations(), s: s, outside: true}
}

func (s *faultyStore) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.Store.WithinTx(ctx, func(tx repository.Tx) error {
		return fn(faultyTx{tx: tx, s: s})
	})
}

type faultyTx struct {
	tx repository.Tx
	s  *faultyStore
}

func (t faultyTx) Resources() repository.ResourceRepository {
	return &faultyResources{ResourceRepository: t.tx.Resources(), s: t.s}
}

func (t faultyTx) Reservations() repository.ReservationRepository {
	return &faultyReservations{ReservationRepository: t.tx.Reservations(), s: t.s}
}

type faultyResources struct {
	repository.ResourceRepository
	s *faultyStore
}

func (r *faultyResources) UpdateAvailability(ctx context.Context, id int32, expectedVersion int64, available int) (int64, error) {
	if r.s.failAvailability {
		return 0, errDisk
	}
	return r.ResourceRepository.UpdateAvailability(ctx, id, expectedVersion, available)
}

type faultyReservations struct {
	repository.ReservationRepository
	s       *faultyStore
	outside bool
}

func (r *faultyReservations) List(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	if r.outside && r.s.hideFromPrecheck {
		return nil, nil
	}
	return r.ReservationRepository.List(ctx, filter)
}

func (r *faultyReservations) AppendStatus(ctx context.Context, id int32, expectedVersion int64, change domain.StatusChange) (int64, error) {
	if r.s.failAppend {
		return 0, errDisk
	}
	return r.ReservationRepository.AppendStatus(ctx, id, expectedVersion, change)
}

type fixture struct {
	store      *faultyStore
	svc        service.ReservationService
	reconciler service.CapacityReconciler
	notifier   *MockNotifier
	clock      service.Clock
}

// today is 2025-06-01 in UTC for every fixture.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &faultyStore{Store: memory.NewStore(nil)}
	clock := service.Clock{
		Now:      func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) },
		Location: time.UTC,
	}
	calc := availability.NewCalculator(14)
	locks := service.NewKeyedMutex()
	reconciler := service.NewCapacityReconciler(store, calc, clock, locks)
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return()
	return &fixture{
		store:      store,
		svc:        service.NewReservationService(store, reconciler, calc, notifier, clock, locks),
		reconciler: reconciler,
		notifier:   notifier,
		clock:      clock,
	}
}

func (f *fixture) addResource(t *testing.T, name string, units int) *domain.Resource {
	t.Helper()
	res := &domain.Resource{
		Name:            name,
		Category:        "camera",
		DailyRate:       50,
		TotalUnits:      units,
		CachedAvailable: units,
		Status:          domain.ResourceStatusActive,
	}
	require.NoError(t, f.store.Resources().Create(context.Background(), res))
	return res
}

func (f *fixture) cached(t *testing.T, id int32) int {
	t.Helper()
	res, err := f.store.Resources().GetByID(context.Background(), id)
	require.NoError(t, err)
	return res.CachedAvailable
}

func request(resourceID int32, start, end string) domain.ReservationRequest {
	return domain.ReservationRequest{
		ResourceID:    resourceID,
		CustomerName:  "Ada Lovelace",
		CustomerEmail: "ada@example.com",
		CustomerPhone: "+44 20 7946 0000",
		StartDate:     start,
		EndDate:       end,
	}
}
