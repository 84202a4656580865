package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPublisher struct {
	mu     sync.Mutex
	counts map[string]int
}

func (p *countingPublisher) Publish(topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts == nil {
		p.counts = make(map[string]int)
	}
	p.counts[topic]++
}

func (p *countingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[topic]
}

func seed(t *testing.T, s *Store) (*domain.Resource, *domain.Reservation) {
	t.Helper()
	ctx := context.Background()
	res := &domain.Resource{Name: "Sony A7", TotalUnits: 2, CachedAvailable: 2, Status: domain.ResourceStatusActive}
	require.NoError(t, s.Resources().Create(ctx, res))

	rv := &domain.Reservation{ResourceID: res.ID, CustomerName: "Alice", StartDate: "2024-01-10", EndDate: "2024-01-12"}
	rv.AppendStatusChange(domain.ReservationStatusPending, "alice", "", time.Now())
	require.NoError(t, s.Reservations().Create(ctx, rv))
	return res, rv
}

func TestStore_CreateAndRead(t *testing.T) {
	s := NewStore(nil)
	res, rv := seed(t, s)
	ctx := context.Background()

	got, err := s.Reservations().GetByID(ctx, rv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sony A7", got.ResourceName)
	assert.Equal(t, int64(1), got.Version)
	assert.Len(t, got.StatusChangeLogs, 1)

	// returned values are copies
	got.StatusChangeLogs = nil
	again, _ := s.Reservations().GetByID(ctx, rv.ID)
	assert.Len(t, again.StatusChangeLogs, 1)

	list, err := s.Reservations().List(ctx, domain.ReservationFilter{ResourceID: res.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = s.Reservations().GetByID(ctx, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_WithinTxRollsBackOnError(t *testing.T) {
	pub := &countingPublisher{}
	s := NewStore(pub)
	res, rv := seed(t, s)
	ctx := context.Background()
	before := pub.count(repository.TopicReservations)
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx repository.Tx) error {
		change := domain.StatusChange{OldStatus: domain.ReservationStatusPending, NewStatus: domain.ReservationStatusConfirmed, Actor: "staff", ChangedAt: time.Now()}
		if _, err := tx.Reservations().AppendStatus(ctx, rv.ID, 1, change); err != nil {
			return err
		}
		if _, err := tx.Resources().UpdateAvailability(ctx, res.ID, 1, 1); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := s.Reservations().GetByID(ctx, rv.ID)
	assert.Equal(t, domain.ReservationStatusPending, got.Status)
	assert.Len(t, got.StatusChangeLogs, 1)
	gotRes, _ := s.Resources().GetByID(ctx, res.ID)
	assert.Equal(t, 2, gotRes.CachedAvailable)
	assert.Equal(t, before, pub.count(repository.TopicReservations))
}

func TestStore_CommitPublishesTouchedTopics(t *testing.T) {
	pub := &countingPublisher{}
	s := NewStore(pub)
	_, rv := seed(t, s)
	ctx := context.Background()
	resBefore := pub.count(repository.TopicResources)

	_, err := s.Reservations().UpdateAdminNotes(ctx, rv.ID, 1, "call before delivery")
	require.NoError(t, err)

	assert.Equal(t, 2, pub.count(repository.TopicReservations))
	assert.Equal(t, resBefore, pub.count(repository.TopicResources))
}

func TestStore_VersionChecks(t *testing.T) {
	s := NewStore(nil)
	res, rv := seed(t, s)
	ctx := context.Background()

	_, err := s.Resources().UpdateAvailability(ctx, res.ID, 7, 1)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	v, err := s.Reservations().UpdateAdminNotes(ctx, rv.ID, 1, "x")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	assert.ErrorIs(t, s.Reservations().Delete(ctx, rv.ID, 1), repository.ErrVersionConflict)
	assert.NoError(t, s.Reservations().Delete(ctx, rv.ID, 2))
	_, err = s.Reservations().GetByID(ctx, rv.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_ConcurrentWritersOnlyOneWins(t *testing.T) {
	s := NewStore(nil)
	_, rv := seed(t, s)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Reservations().UpdateAdminNotes(ctx, rv.ID, 1, "race"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestNotificationRepository(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()
	for _, msg := range []string{"a", "b", "c"} {
		require.NoError(t, s.Notifications().Create(ctx, &domain.Notification{Kind: domain.NotificationInfo, Message: msg}))
	}
	notes, total, err := s.Notifications().List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(3), total)
	require.Len(t, notes, 2)
	assert.Equal(t, "c", notes[0].Message)

	assert.NoError(t, s.Notifications().MarkAsRead(ctx, 1))
	assert.ErrorIs(t, s.Notifications().MarkAsRead(ctx, 9), repository.ErrNotFound)
}
