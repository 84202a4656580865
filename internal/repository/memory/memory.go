// Package memory is a store adapter that keeps everything in process memory.
// Transactions are serialized and work on a copy of the data that replaces the
// committed state only when the transaction function succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/repository"
)

type state struct {
	resources    map[int32]*domain.Resource
	reservations map[int32]*domain.Reservation
	nextResource int32
	nextReserve  int32
}

func newState() *state {
	return &state{
		resources:    make(map[int32]*domain.Resource),
		reservations: make(map[int32]*domain.Reservation),
	}
}

func (s *state) clone() *state {
	c := &state{
		resources:    make(map[int32]*domain.Resource, len(s.resources)),
		reservations: make(map[int32]*domain.Reservation, len(s.reservations)),
		nextResource: s.nextResource,
		nextReserve:  s.nextReserve,
	}
	for id, res := range s.resources {
		cp := *res
		c.resources[id] = &cp
	}
	for id, rv := range s.reservations {
		c.reservations[id] = rv.Clone()
	}
	return c
}

type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
	pub  repository.ChangePublisher

	notifications *notificationRepository
}

// NewStore returns an empty store. pub may be nil.
func NewStore(pub repository.ChangePublisher) *Store {
	return &Store{
		st:            newState(),
		pub:           pub,
		notifications: &notificationRepository{},
	}
}

// unit is the working set of one transaction.
type unit struct {
	st      *state
	touched map[string]bool
}

func (u *unit) touch(topic string) { u.touched[topic] = true }

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	u := &unit{st: s.st.clone(), touched: make(map[string]bool)}
	s.mu.RUnlock()

	if err := fn(&txView{u: u}); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = u.st
	s.mu.Unlock()

	if s.pub != nil {
		for _, topic := range []string{repository.TopicResources, repository.TopicReservations} {
			if u.touched[topic] {
				s.pub.Publish(topic)
			}
		}
	}
	return nil
}

// read runs fn against the committed state.
func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.st)
}

func (s *Store) Resources() repository.ResourceRepository {
	return &resourceRepository{store: s}
}

func (s *Store) Reservations() repository.ReservationRepository {
	return &reservationRepository{store: s}
}

func (s *Store) Notifications() repository.NotificationRepository { return s.notifications }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

type txView struct{ u *unit }

func (v *txView) Resources() repository.ResourceRepository {
	return &resourceRepository{u: v.u}
}

func (v *txView) Reservations() repository.ReservationRepository {
	return &reservationRepository{u: v.u}
}

// do runs a write either inside the bound unit or in a transaction of its own.
func do(ctx context.Context, store *Store, u *unit, fn func(u *unit) error) error {
	if u != nil {
		return fn(u)
	}
	return store.WithinTx(ctx, func(tx repository.Tx) error {
		return fn(tx.(*txView).u)
	})
}

// view runs a read against the bound unit or the committed state.
func view(store *Store, u *unit, fn func(st *state) error) error {
	if u != nil {
		return fn(u.st)
	}
	return store.read(fn)
}

type resourceRepository struct {
	store *Store
	u     *unit
}

func (r *resourceRepository) Create(ctx context.Context, res *domain.Resource) error {
	return do(ctx, r.store, r.u, func(u *unit) error {
		u.st.nextResource++
		res.ID = u.st.nextResource
		res.Version = 1
		cp := *res
		u.st.resources[res.ID] = &cp
		u.touch(repository.TopicResources)
		return nil
	})
}

func (r *resourceRepository) GetByID(ctx context.Context, id int32) (*domain.Resource, error) {
	var out *domain.Resource
	err := view(r.store, r.u, func(st *state) error {
		res, ok := st.resources[id]
		if !ok {
			return repository.ErrNotFound
		}
		cp := *res
		out = &cp
		return nil
	})
	return out, err
}

// GetForUpdate needs no extra locking because transactions are serialized.
func (r *resourceRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Resource, error) {
	return r.GetByID(ctx, id)
}

func (r *resourceRepository) List(ctx context.Context) ([]domain.Resource, error) {
	var out []domain.Resource
	err := view(r.store, r.u, func(st *state) error {
		for _, res := range st.resources {
			out = append(out, *res)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *resourceRepository) UpdateAvailability(ctx context.Context, id int32, expectedVersion int64, available int) (int64, error) {
	var version int64
	err := do(ctx, r.store, r.u, func(u *unit) error {
		res, ok := u.st.resources[id]
		if !ok || res.Version != expectedVersion {
			return repository.ErrVersionConflict
		}
		res.CachedAvailable = available
		res.Version++
		version = res.Version
		u.touch(repository.TopicResources)
		return nil
	})
	return version, err
}

type reservationRepository struct {
	store *Store
	u     *unit
}

func (r *reservationRepository) Create(ctx context.Context, rv *domain.Reservation) error {
	return do(ctx, r.store, r.u, func(u *unit) error {
		res, ok := u.st.resources[rv.ResourceID]
		if !ok {
			return repository.ErrNotFound
		}
		u.st.nextReserve++
		rv.ID = u.st.nextReserve
		rv.Version = 1
		rv.ResourceName = res.Name
		u.st.reservations[rv.ID] = rv.Clone()
		u.touch(repository.TopicReservations)
		return nil
	})
}

func (r *reservationRepository) GetByID(ctx context.Context, id int32) (*domain.Reservation, error) {
	var out *domain.Reservation
	err := view(r.store, r.u, func(st *state) error {
		rv, ok := st.reservations[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = withResourceName(st, rv.Clone())
		return nil
	})
	return out, err
}

func withResourceName(st *state, rv *domain.Reservation) *domain.Reservation {
	if res, ok := st.resources[rv.ResourceID]; ok {
		rv.ResourceName = res.Name
	}
	return rv
}

func (r *reservationRepository) List(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := view(r.store, r.u, func(st *state) error {
		for _, rv := range st.reservations {
			if filter.Matches(rv) {
				out = append(out, *withResourceName(st, rv.Clone()))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate != out[j].StartDate {
			return out[i].StartDate < out[j].StartDate
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *reservationRepository) AppendStatus(ctx context.Context, id int32, expectedVersion int64, change domain.StatusChange) (int64, error) {
	var version int64
	err := do(ctx, r.store, r.u, func(u *unit) error {
		rv, ok := u.st.reservations[id]
		if !ok || rv.Version != expectedVersion {
			return repository.ErrVersionConflict
		}
		rv.StatusChangeLogs = append(rv.StatusChangeLogs, change)
		rv.Status = change.NewStatus
		rv.Version++
		version = rv.Version
		u.touch(repository.TopicReservations)
		return nil
	})
	return version, err
}

func (r *reservationRepository) UpdateAdminNotes(ctx context.Context, id int32, expectedVersion int64, notes string) (int64, error) {
	var version int64
	err := do(ctx, r.store, r.u, func(u *unit) error {
		rv, ok := u.st.reservations[id]
		if !ok || rv.Version != expectedVersion {
			return repository.ErrVersionConflict
		}
		rv.AdminNotes = notes
		rv.Version++
		version = rv.Version
		u.touch(repository.TopicReservations)
		return nil
	})
	return version, err
}

func (r *reservationRepository) Delete(ctx context.Context, id int32, expectedVersion int64) error {
	return do(ctx, r.store, r.u, func(u *unit) error {
		rv, ok := u.st.reservations[id]
		if !ok || rv.Version != expectedVersion {
			return repository.ErrVersionConflict
		}
		delete(u.st.reservations, id)
		u.touch(repository.TopicReservations)
		return nil
	})
}

type notificationRepository struct {
	mu    sync.Mutex
	notes []domain.Notification
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = int32(len(r.notes) + 1)
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	r.notes = append(r.notes, *n)
	return nil
}

func (r *notificationRepository) List(ctx context.Context, limit, offset int32) ([]domain.Notification, int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := int32(len(r.notes))
	var out []domain.Notification
	// newest first
	for i := total - 1 - offset; i >= 0 && int32(len(out)) < limit; i-- {
		out = append(out, r.notes[i])
	}
	return out, total, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id < 1 || int(id) > len(r.notes) {
		return repository.ErrNotFound
	}
	r.notes[id-1].IsRead = true
	return nil
}
