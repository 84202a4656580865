package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var resourceCols = []string{"id", "name", "category", "daily_rate", "total_units", "cached_available", "status", "description", "specifications", "version"}

var reservationCols = []string{"id", "resource_id", "name", "customer_name", "customer_email", "customer_phone",
	"start_date", "end_date", "start_time", "end_time", "total_days", "daily_rate", "total_amount",
	"status", "notes", "admin_notes", "created_at", "version"}

var logCols = []string{"reservation_id", "old_status", "new_status", "actor", "changed_at", "notes"}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestResourceRepository_Create(t *testing.T) {
	store, mock := newMock(t)
	res := &domain.Resource{Name: "Canon R5", Category: "mirrorless", DailyRate: 45, TotalUnits: 2, CachedAvailable: 2, Status: domain.ResourceStatusActive}

	mock.ExpectQuery("INSERT INTO resources").
		WithArgs(res.Name, res.Category, res.DailyRate, res.TotalUnits, res.CachedAvailable, res.Status, res.Description, res.Specifications).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version"}).AddRow(5, 1))

	err := store.Resources().Create(context.Background(), res)
	assert.NoError(t, err)
	assert.Equal(t, int32(5), res.ID)
	assert.Equal(t, int64(1), res.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_GetByID(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM resources WHERE id = \\$1").
			WithArgs(int32(1)).
			WillReturnRows(sqlmock.NewRows(resourceCols).AddRow(1, "Canon R5", "mirrorless", 45.0, 2, 1, "active", "", "", 3))

		res, err := store.Resources().GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Canon R5", res.Name)
		assert.Equal(t, 2, res.TotalUnits)
		assert.Equal(t, domain.ResourceStatusActive, res.Status)
		assert.Equal(t, int64(3), res.Version)
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM resources WHERE id = \\$1").
			WithArgs(int32(9)).
			WillReturnRows(sqlmock.NewRows(resourceCols))

		_, err := store.Resources().GetByID(ctx, 9)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepository_UpdateAvailability(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("UPDATE resources SET cached_available").
			WithArgs(1, int32(1), int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(4))

		version, err := store.Resources().UpdateAvailability(ctx, 1, 3, 1)
		assert.NoError(t, err)
		assert.Equal(t, int64(4), version)
	})

	t.Run("Stale version", func(t *testing.T) {
		mock.ExpectQuery("UPDATE resources SET cached_available").
			WithArgs(0, int32(1), int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"version"}))

		_, err := store.Resources().UpdateAvailability(ctx, 1, 3, 0)
		assert.ErrorIs(t, err, repository.ErrVersionConflict)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_Create(t *testing.T) {
	store, mock := newMock(t)
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	rv := &domain.Reservation{
		ResourceID: 1, CustomerName: "Alice", CustomerEmail: "alice@example.com", CustomerPhone: "555",
		StartDate: "2024-01-15", EndDate: "2024-01-18", TotalDays: 4, DailyRate: 45, TotalAmount: 180,
		CreatedAt: now,
	}
	rv.AppendStatusChange(domain.ReservationStatusPending, "alice@example.com", "", now)

	mock.ExpectQuery("INSERT INTO reservations").
		WithArgs(rv.ResourceID, rv.CustomerName, rv.CustomerEmail, rv.CustomerPhone, rv.StartDate, rv.EndDate,
			"", "", 4, 45.0, 180.0, domain.ReservationStatusPending, "", "", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version"}).AddRow(11, 1))
	mock.ExpectExec("INSERT INTO reservation_status_logs").
		WithArgs(int32(11), domain.ReservationStatus(""), domain.ReservationStatusPending, "alice@example.com", sqlmock.AnyArg(), "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Reservations().Create(context.Background(), rv)
	assert.NoError(t, err)
	assert.Equal(t, int32(11), rv.ID)
	assert.Equal(t, int64(1), rv.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_GetByID(t *testing.T) {
	store, mock := newMock(t)
	created := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	confirmed := created.Add(time.Hour)

	mock.ExpectQuery("SELECT r.id, r.resource_id (.+) WHERE r.id = \\$1").
		WithArgs(int32(11)).
		WillReturnRows(sqlmock.NewRows(reservationCols).AddRow(
			11, 1, "Canon R5", "Alice", "alice@example.com", "555",
			time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 18, 0, 0, 0, 0, time.UTC),
			"09:30", "", 4, 45.0, 180.0, "confirmed", "", "", created, 2))
	mock.ExpectQuery("FROM reservation_status_logs WHERE reservation_id = ANY").
		WithArgs(pq.Array([]int32{11})).
		WillReturnRows(sqlmock.NewRows(logCols).
			AddRow(11, "", "pending", "alice@example.com", created, "").
			AddRow(11, "pending", "confirmed", "staff", confirmed, "deposit received"))

	rv, err := store.Reservations().GetByID(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", rv.StartDate)
	assert.Equal(t, "2024-01-18", rv.EndDate)
	assert.Equal(t, "Canon R5", rv.ResourceName)
	assert.Equal(t, domain.ReservationStatusConfirmed, rv.Status)
	require.Len(t, rv.StatusChangeLogs, 2)
	assert.Equal(t, "deposit received", rv.StatusChangeLogs[1].Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_ListFiltersAndLoadsLogs(t *testing.T) {
	store, mock := newMock(t)
	created := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	mock.ExpectQuery("WHERE 1=1 AND r.resource_id = \\$1 AND r.status = \\$2 ORDER BY").
		WithArgs(int32(1), domain.ReservationStatusPending).
		WillReturnRows(sqlmock.NewRows(reservationCols).
			AddRow(3, 1, "Canon R5", "Bob", "bob@example.com", "1", day(10), day(12), "", "", 3, 45.0, 135.0, "pending", "", "", created, 1).
			AddRow(4, 1, "Canon R5", "Eve", "eve@example.com", "2", day(11), day(11), "", "", 1, 45.0, 45.0, "pending", "", "", created, 1))
	mock.ExpectQuery("FROM reservation_status_logs").
		WithArgs(pq.Array([]int32{3, 4})).
		WillReturnRows(sqlmock.NewRows(logCols).
			AddRow(3, "", "pending", "bob@example.com", created, "").
			AddRow(4, "", "pending", "eve@example.com", created, ""))

	list, err := store.Reservations().List(context.Background(), domain.ReservationFilter{ResourceID: 1, Status: domain.ReservationStatusPending})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Len(t, list[0].StatusChangeLogs, 1)
	assert.Equal(t, "eve@example.com", list[1].StatusChangeLogs[0].Actor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_AppendStatus(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()
	change := domain.StatusChange{OldStatus: domain.ReservationStatusPending, NewStatus: domain.ReservationStatusConfirmed, Actor: "staff", ChangedAt: time.Now()}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("UPDATE reservations SET status").
			WithArgs(domain.ReservationStatusConfirmed, int32(11), int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(2))
		mock.ExpectExec("INSERT INTO reservation_status_logs").
			WithArgs(int32(11), change.OldStatus, change.NewStatus, change.Actor, change.ChangedAt, "").
			WillReturnResult(sqlmock.NewResult(1, 1))

		version, err := store.Reservations().AppendStatus(ctx, 11, 1, change)
		assert.NoError(t, err)
		assert.Equal(t, int64(2), version)
	})

	t.Run("Stale version skips log insert", func(t *testing.T) {
		mock.ExpectQuery("UPDATE reservations SET status").
			WithArgs(domain.ReservationStatusConfirmed, int32(11), int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"version"}))

		_, err := store.Reservations().AppendStatus(ctx, 11, 1, change)
		assert.ErrorIs(t, err, repository.ErrVersionConflict)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_Delete(t *testing.T) {
	store, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM reservations WHERE id = \\$1 AND version = \\$2").
		WithArgs(int32(11), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, store.Reservations().Delete(ctx, 11, 2))

	mock.ExpectExec("DELETE FROM reservations").
		WithArgs(int32(11), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.Reservations().Delete(ctx, 11, 1), repository.ErrVersionConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		store, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("FROM resources WHERE id = \\$1 FOR UPDATE").
			WithArgs(int32(1)).
			WillReturnRows(sqlmock.NewRows(resourceCols).AddRow(1, "Canon R5", "", 45.0, 2, 2, "active", "", "", 1))
		mock.ExpectQuery("UPDATE resources SET cached_available").
			WithArgs(1, int32(1), int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(2))
		mock.ExpectCommit()

		err := store.WithinTx(ctx, func(tx repository.Tx) error {
			res, err := tx.Resources().GetForUpdate(ctx, 1)
			if err != nil {
				return err
			}
			_, err = tx.Resources().UpdateAvailability(ctx, res.ID, res.Version, 1)
			return err
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback on error", func(t *testing.T) {
		store, mock := newMock(t)
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := store.WithinTx(ctx, func(tx repository.Tx) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNotificationRepository_Create(t *testing.T) {
	store, mock := newMock(t)
	n := &domain.Notification{Kind: domain.NotificationWarning, Message: "overbooked", Attributes: map[string]string{"resourceId": "1"}}

	mock.ExpectQuery("INSERT INTO notifications").
		WithArgs(n.Kind, n.Message, false, []byte(`{"resourceId":"1"}`), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	err := store.Notifications().Create(context.Background(), n)
	assert.NoError(t, err)
	assert.Equal(t, int32(7), n.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type recordingPublisher struct{ topics []string }

func (p *recordingPublisher) Publish(topic string) { p.topics = append(p.topics, topic) }

func TestChangeListener_Dispatch(t *testing.T) {
	pub := &recordingPublisher{}
	l := NewChangeListener("postgres://unused", pub)

	l.dispatch(&pq.Notification{Channel: ChangeChannel, Extra: repository.TopicReservations})
	l.dispatch(&pq.Notification{Channel: ChangeChannel, Extra: "users"})
	assert.Equal(t, []string{repository.TopicReservations}, pub.topics)

	pub.topics = nil
	l.dispatch(nil)
	assert.ElementsMatch(t, []string{repository.TopicResources, repository.TopicReservations}, pub.topics)
}
