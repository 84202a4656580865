package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"camrent-backend/internal/utils"
)

// StatusChange is one entry of a reservation's append-only audit log.
// OldStatus is empty for the entry written at creation.
type StatusChange struct {
	OldStatus ReservationStatus `json:"oldStatus"`
	NewStatus ReservationStatus `json:"newStatus"`
	Actor     string            `json:"actor"`
	ChangedAt time.Time         `json:"changedAt"`
	Notes     string            `json:"notes,omitempty"`
}

type Reservation struct {
	ID            int32  `json:"id"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`
	ResourceID    int32  `json:"resourceId"`
	ResourceName  string `json:"resourceName"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	// StartTime and EndTime are informational and never used for availability.
	StartTime        string            `json:"startTime,omitempty"`
	EndTime          string            `json:"endTime,omitempty"`
	TotalDays        int               `json:"totalDays"`
	DailyRate        float64           `json:"dailyRate"`
	TotalAmount      float64           `json:"totalAmount"`
	Status           ReservationStatus `json:"status"`
	CreatedAt        time.Time         `json:"createdAt"`
	Notes            string            `json:"notes,omitempty"`
	AdminNotes       string            `json:"adminNotes,omitempty"`
	StatusChangeLogs []StatusChange    `json:"statusChangeLogs"`
	Version          int64             `json:"version"`
}

// Window returns the reservation's first and last day at midnight in loc.
func (r *Reservation) Window(loc *time.Location) (start, end time.Time, err error) {
	start, err = utils.ParseDate(r.StartDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = utils.ParseDate(r.EndDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// Overlaps reports whether the inclusive window [from, to] shares at least one
// day with the reservation. Reservations with unparseable dates never overlap.
func (r *Reservation) Overlaps(from, to time.Time) bool {
	start, end, err := r.Window(from.Location())
	if err != nil {
		return false
	}
	from, to = utils.StartOfDay(from), utils.StartOfDay(to)
	return !start.After(to) && !end.Before(from)
}

// AppendStatusChange records a transition and moves Status along with it.
// ChangedAt is kept strictly increasing even when the clock has not advanced.
func (r *Reservation) AppendStatusChange(newStatus ReservationStatus, actor, notes string, at time.Time) StatusChange {
	at = at.Truncate(time.Microsecond)
	if n := len(r.StatusChangeLogs); n > 0 {
		last := r.StatusChangeLogs[n-1].ChangedAt
		if !at.After(last) {
			at = last.Add(time.Microsecond)
		}
	}
	change := StatusChange{
		OldStatus: r.Status,
		NewStatus: newStatus,
		Actor:     actor,
		ChangedAt: at,
		Notes:     notes,
	}
	r.StatusChangeLogs = append(r.StatusChangeLogs, change)
	r.Status = newStatus
	return change
}

// Clone returns a deep copy so callers can mutate without sharing the log.
func (r *Reservation) Clone() *Reservation {
	c := *r
	c.StatusChangeLogs = append([]StatusChange(nil), r.StatusChangeLogs...)
	return &c
}

// ReservationRequest is the customer-supplied part of a new reservation.
type ReservationRequest struct {
	ResourceID    int32  `json:"resourceId"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	StartTime     string `json:"startTime,omitempty"`
	EndTime       string `json:"endTime,omitempty"`
	Notes         string `json:"notes,omitempty"`
	// Actor is recorded on the initial log entry; defaults to the customer email.
	Actor string `json:"actor,omitempty"`
}

// Validate checks required fields and the date range and returns the parsed
// window in loc.
func (req *ReservationRequest) Validate(loc *time.Location) (start, end time.Time, err error) {
	required := []struct {
		field string
		value string
	}{
		{"customerName", req.CustomerName},
		{"customerEmail", req.CustomerEmail},
		{"customerPhone", req.CustomerPhone},
		{"startDate", req.StartDate},
		{"endDate", req.EndDate},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return time.Time{}, time.Time{}, &ValidationError{Field: f.field, Reason: "is required"}
		}
	}
	if req.ResourceID <= 0 {
		return time.Time{}, time.Time{}, &ValidationError{Field: "resourceId", Reason: "is required"}
	}
	if _, err := mail.ParseAddress(req.CustomerEmail); err != nil {
		return time.Time{}, time.Time{}, &ValidationError{Field: "customerEmail", Reason: "is not a valid address"}
	}

	start, err = utils.ParseDate(req.StartDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{Field: "startDate", Reason: err.Error()}
	}
	end, err = utils.ParseDate(req.EndDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{Field: "endDate", Reason: err.Error()}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, &ValidationError{Field: "endDate", Reason: "must not be before startDate"}
	}

	for _, f := range []struct{ field, value string }{{"startTime", req.StartTime}, {"endTime", req.EndTime}} {
		if f.value == "" {
			continue
		}
		if _, _, err := utils.ParseClock(f.value); err != nil {
			return time.Time{}, time.Time{}, &ValidationError{Field: f.field, Reason: err.Error()}
		}
	}
	return start, end, nil
}

// StatusChangeRequest is an operator override. ExpectedVersion 0 accepts the
// version read inside the transaction.
type StatusChangeRequest struct {
	ReservationID   int32             `json:"reservationId"`
	ExpectedVersion int64             `json:"expectedVersion,omitempty"`
	NewStatus       ReservationStatus `json:"newStatus"`
	Actor           string            `json:"actor"`
	Note            string            `json:"note,omitempty"`
}

type ReservationFilter struct {
	ResourceID int32
	Status     ReservationStatus
}

// Matches reports whether r passes the filter; zero fields match anything.
func (f ReservationFilter) Matches(r *Reservation) bool {
	if f.ResourceID != 0 && r.ResourceID != f.ResourceID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// OverbookedWarning is raised when the reconciliation that follows a write
// finds more counting reservations than units.
type OverbookedWarning struct {
	ResourceID    int32  `json:"resourceId"`
	ResourceName  string `json:"resourceName"`
	ReservationID int32  `json:"reservationId"`
	Demand        int    `json:"demand"`
	TotalUnits    int    `json:"totalUnits"`
}

func (w *OverbookedWarning) Message() string {
	return fmt.Sprintf("resource %s is overbooked: %d reservations hold %d units (reservation %d)",
		w.ResourceName, w.Demand, w.TotalUnits, w.ReservationID)
}
