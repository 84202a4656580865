package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/logger"
	"camrent-backend/internal/report"
	"camrent-backend/internal/repository"
	"camrent-backend/internal/service"
	"camrent-backend/internal/utils"
)

// ReadinessCheck is one dependency checked by /readyz.
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Handler struct {
	availabilitySvc service.AvailabilityService
	calendarSvc     service.CalendarService
	snapshots       repository.Snapshotter
	clock           service.Clock
	checks          []ReadinessCheck
}

func NewHandler(
	availabilitySvc service.AvailabilityService,
	calendarSvc service.CalendarService,
	snapshots repository.Snapshotter,
	clock service.Clock,
	checks ...ReadinessCheck,
) *Handler {
	return &Handler{
		availabilitySvc: availabilitySvc,
		calendarSvc:     calendarSvc,
		snapshots:       snapshots,
		clock:           clock,
		checks:          checks,
	}
}

// RegisterRoutes mounts the read API, the report download and the ops
// endpoints on r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(requestMiddleware)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/availability", h.GetAvailability).Methods(http.MethodGet)
	api.HandleFunc("/resources/{id:[0-9]+}/availability", h.GetResourceAvailability).Methods(http.MethodGet)
	api.HandleFunc("/calendar", h.GetCalendarRange).Methods(http.MethodGet)
	api.HandleFunc("/calendar/{day}", h.GetCalendarDay).Methods(http.MethodGet)

	r.HandleFunc("/reports/status-log.xlsx", h.GetStatusLogReport).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", h.Readyz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrConcurrencyConflict), errors.Is(err, domain.ErrInvalidTransition):
		code = http.StatusConflict
	case errors.Is(err, domain.ErrPersistence):
		code = http.StatusServiceUnavailable
	}
	if code >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// dateParam parses a YYYY-MM-DD value, falling back to def when empty.
func (h *Handler) dateParam(field, value string, def time.Time) (time.Time, error) {
	if value == "" {
		return def, nil
	}
	d, err := utils.ParseDate(value, h.clock.Location)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: field, Reason: err.Error()}
	}
	return d, nil
}

// GetAvailability serves the availability board. ?date= picks the day
// (default today) and ?offerable=true hides resources that cannot be booked.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	asOf, err := h.dateParam("date", q.Get("date"), h.clock.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	offerable, _ := strconv.ParseBool(q.Get("offerable"))

	board, err := h.availabilitySvc.Board(r.Context(), asOf, offerable)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": utils.FormatDate(asOf), "resources": board})
}

func (h *Handler) GetResourceAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 32)
	if err != nil {
		writeError(w, r, &domain.ValidationError{Field: "id", Reason: "is not a number"})
		return
	}
	today := h.clock.Today()
	q := r.URL.Query()
	from, err := h.dateParam("from", q.Get("from"), today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := h.dateParam("to", q.Get("to"), from.AddDate(0, 0, 13))
	if err != nil {
		writeError(w, r, err)
		return
	}

	days, err := h.availabilitySvc.ForResource(r.Context(), int32(id), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resourceId": id, "days": days})
}

func (h *Handler) GetCalendarDay(w http.ResponseWriter, r *http.Request) {
	day, err := h.dateParam("day", mux.Vars(r)["day"], h.clock.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	events, err := h.calendarSvc.EventsForDay(r.Context(), day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.DaySchedule{Day: utils.FormatDate(day), Events: events})
}

// GetCalendarRange serves one schedule per day; the default is the
// coming week.
func (h *Handler) GetCalendarRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := h.dateParam("from", q.Get("from"), h.clock.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := h.dateParam("to", q.Get("to"), from.AddDate(0, 0, 6))
	if err != nil {
		writeError(w, r, err)
		return
	}
	schedule, err := h.calendarSvc.EventsForRange(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": schedule})
}

// GetStatusLogReport streams the xlsx audit export; the default range is
// the current month so far.
func (h *Handler) GetStatusLogReport(w http.ResponseWriter, r *http.Request) {
	today := h.clock.Today()
	q := r.URL.Query()
	from, err := h.dateParam("from", q.Get("from"), today.AddDate(0, 0, 1-today.Day()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := h.dateParam("to", q.Get("to"), today)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if to.Before(from) {
		writeError(w, r, &domain.ValidationError{Field: "to", Reason: "must not be before from"})
		return
	}

	reservations, err := h.snapshots.ReservationSnapshot(r.Context())
	if err != nil {
		writeError(w, r, &domain.PersistenceError{Op: "report", Entity: "reservation", Err: err})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="status-log-%s-%s.xlsx"`,
		utils.FormatDate(from), utils.FormatDate(to)))
	if err := report.WriteStatusLog(w, reservations, from, to, h.clock.Location); err != nil {
		logger.ErrorContext(r.Context(), "Failed to write status log report", "error", err)
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	for _, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "Readiness check failed", "check", c.Name, "error", err)
			http.Error(w, c.Name+" not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
