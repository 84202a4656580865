package jobs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"camrent-backend/internal/availability"
	"camrent-backend/internal/config"
	"camrent-backend/internal/domain"
	"camrent-backend/internal/repository/memory"
	"camrent-backend/internal/service"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, kind domain.NotificationKind, message string) {
	m.Called(ctx, kind, message)
}

type MockReconciler struct {
	mock.Mock
	service.CapacityReconciler
}

func (m *MockReconciler) ReconcileAll(ctx context.Context) ([]service.ReconcileResult, error) {
	args := m.Called(ctx)
	return args.Get(0).([]service.ReconcileResult), args.Error(1)
}

func setup(t *testing.T) (*JobRunner, *memory.Store, *MockNotifier) {
	t.Helper()
	store := memory.NewStore(nil)
	clock := service.Clock{
		Now:      func() time.Time { return time.Date(2025, 7, 15, 8, 0, 0, 0, time.UTC) },
		Location: time.UTC,
	}
	cfg := &config.Config{Reports: config.ReportsConfig{Dir: t.TempDir()}}
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return()
	reconciler := service.NewCapacityReconciler(store, availability.NewCalculator(14), clock, service.NewKeyedMutex())
	jr := NewJobRunner(store, &Services{Reconciler: reconciler, Notifier: notifier}, cfg, clock)
	return jr, store, notifier
}

func seed(t *testing.T, store *memory.Store, status domain.ReservationStatus, start, end string) *domain.Reservation {
	t.Helper()
	ctx := context.Background()
	res := &domain.Resource{Name: "Sony A7 IV", TotalUnits: 1, CachedAvailable: 1, Status: domain.ResourceStatusActive}
	require.NoError(t, store.Resources().Create(ctx, res))
	rv := &domain.Reservation{
		ResourceID:   res.ID,
		CustomerName: "Ada",
		StartDate:    start,
		EndDate:      end,
		Status:       status,
		StatusChangeLogs: []domain.StatusChange{
			{NewStatus: domain.ReservationStatusPending, Actor: "ada", ChangedAt: time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC)},
			{OldStatus: domain.ReservationStatusPending, NewStatus: status, Actor: "staff", ChangedAt: time.Date(2025, 6, 21, 9, 0, 0, 0, time.UTC)},
		},
	}
	require.NoError(t, store.Reservations().Create(ctx, rv))
	return rv
}

func TestReconcileCapacity(t *testing.T) {
	jr, store, notifier := setup(t)
	seed(t, store, domain.ReservationStatusConfirmed, "2025-07-20", "2025-07-22")

	jr.ReconcileCapacity()

	res, err := store.Resources().GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, res.CachedAvailable)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, domain.NotificationWarning, mock.Anything)
}

func TestReconcileCapacity_WarnsOnOverbooking(t *testing.T) {
	jr, _, notifier := setup(t)
	reconciler := new(MockReconciler)
	reconciler.On("ReconcileAll", mock.Anything).Return([]service.ReconcileResult{
		{ResourceID: 3, ResourceName: "Canon R5", Demand: 3, TotalUnits: 2, Overbooked: true, Changed: true},
	}, nil)
	jr.services.Reconciler = reconciler

	jr.ReconcileCapacity()

	notifier.AssertCalled(t, "Notify", mock.Anything, domain.NotificationWarning,
		mock.MatchedBy(func(msg string) bool { return strings.Contains(msg, "Canon R5") }))
}

func TestRemindOvertime(t *testing.T) {
	jr, store, notifier := setup(t)
	late := seed(t, store, domain.ReservationStatusActive, "2025-07-10", "2025-07-14")
	seed(t, store, domain.ReservationStatusActive, "2025-07-10", "2025-07-15")
	seed(t, store, domain.ReservationStatusConfirmed, "2025-07-01", "2025-07-02")

	jr.RemindOvertime()

	notifier.AssertNumberOfCalls(t, "Notify", 1)
	notifier.AssertCalled(t, "Notify", mock.Anything, domain.NotificationWarning,
		mock.MatchedBy(func(msg string) bool { return strings.Contains(msg, "#1 ") && strings.Contains(msg, late.EndDate) }))
}

func TestExportStatusLog(t *testing.T) {
	jr, store, notifier := setup(t)
	seed(t, store, domain.ReservationStatusConfirmed, "2025-06-25", "2025-06-27")

	jr.ExportStatusLog()

	path := filepath.Join(jr.config.Reports.Dir, "status-log-2025-06.xlsx")
	_, err := os.Stat(path)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Reservations")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	changes, err := f.GetRows("StatusChanges")
	require.NoError(t, err)
	assert.Len(t, changes, 3)

	notifier.AssertCalled(t, "Notify", mock.Anything, domain.NotificationInfo, mock.Anything)
}

func TestRunWithRecovery(t *testing.T) {
	jr, _, _ := setup(t)
	ran := false
	assert.NotPanics(t, func() {
		jr.runWithRecovery("Boom", func() error {
			ran = true
			panic("boom")
		})
	})
	assert.True(t, ran)
}
