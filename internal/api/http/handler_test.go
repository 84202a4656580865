package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"camrent-backend/internal/availability"
	"camrent-backend/internal/calendar"
	"camrent-backend/internal/domain"
	"camrent-backend/internal/repository"
	"camrent-backend/internal/repository/memory"
	"camrent-backend/internal/service"
)

func newRouter(t *testing.T, checks ...ReadinessCheck) *mux.Router {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore(nil)
	clock := service.Clock{
		Now:      func() time.Time { return time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC) },
		Location: time.UTC,
	}

	res := &domain.Resource{Name: "Sony A7 IV", TotalUnits: 2, CachedAvailable: 1, Status: domain.ResourceStatusActive}
	require.NoError(t, store.Resources().Create(ctx, res))
	rv := &domain.Reservation{
		ResourceID: res.ID, CustomerName: "Ada", StartDate: "2025-06-10", EndDate: "2025-06-12",
		Status: domain.ReservationStatusConfirmed,
		StatusChangeLogs: []domain.StatusChange{
			{NewStatus: domain.ReservationStatusPending, Actor: "ada", ChangedAt: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)},
			{OldStatus: domain.ReservationStatusPending, NewStatus: domain.ReservationStatusConfirmed, Actor: "staff", ChangedAt: time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)},
		},
	}
	require.NoError(t, store.Reservations().Create(ctx, rv))

	snapshots := repository.StoreSnapshots(store)
	calc := availability.NewCalculator(14)
	projector, err := calendar.NewProjector("", "")
	require.NoError(t, err)
	h := NewHandler(service.NewAvailabilityService(snapshots, calc), service.NewCalendarService(snapshots, projector),
		snapshots, clock, checks...)

	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetAvailability(t *testing.T) {
	r := newRouter(t)

	rec := get(t, r, "/api/v1/availability")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	var body struct {
		Date      string                        `json:"date"`
		Resources []domain.ResourceAvailability `json:"resources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2025-06-11", body.Date)
	require.Len(t, body.Resources, 1)
	assert.Equal(t, 1, body.Resources[0].Available)

	rec = get(t, r, "/api/v1/availability?date=11/06/2025")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestGetResourceAvailability(t *testing.T) {
	r := newRouter(t)

	rec := get(t, r, "/api/v1/resources/1/availability?from=2025-06-11&to=2025-06-13")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Days []domain.DayAvailability `json:"days"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Days, 3)

	assert.Equal(t, http.StatusNotFound, get(t, r, "/api/v1/resources/9/availability").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, r, "/api/v1/resources/1/availability?from=2025-06-13&to=2025-06-11").Code)
}

func TestGetCalendar(t *testing.T) {
	r := newRouter(t)

	rec := get(t, r, "/api/v1/calendar/2025-06-12")
	require.Equal(t, http.StatusOK, rec.Code)
	var day domain.DaySchedule
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &day))
	require.Len(t, day.Events, 1)
	assert.Equal(t, domain.EventReturn, day.Events[0].Kind)
	assert.True(t, day.Events[0].Projected)

	rec = get(t, r, "/api/v1/calendar?from=2025-06-09&to=2025-06-13")
	require.Equal(t, http.StatusOK, rec.Code)
	var rangeBody struct {
		Days []domain.DaySchedule `json:"days"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rangeBody))
	assert.Len(t, rangeBody.Days, 5)

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/api/v1/calendar?from=2025-01-01&to=2025-12-31").Code)
}

func TestGetStatusLogReport(t *testing.T) {
	r := newRouter(t)

	rec := get(t, r, "/reports/status-log.xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "status-log-2025-06-01-2025-06-11.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("StatusChanges")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/reports/status-log.xlsx?from=2025-06-10&to=2025-06-01").Code)
}

func TestOpsEndpoints(t *testing.T) {
	healthy := newRouter(t, ReadinessCheck{Name: "store", Ping: func(context.Context) error { return nil }})
	assert.Equal(t, http.StatusOK, get(t, healthy, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(t, healthy, "/readyz").Code)
	assert.Equal(t, http.StatusOK, get(t, healthy, "/metrics").Code)

	down := newRouter(t, ReadinessCheck{Name: "redis", Ping: func(context.Context) error { return errors.New("refused") }})
	rec := get(t, down, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis not ready")
}
