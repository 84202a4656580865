// Package calendar projects reservations onto per-day delivery, return and
// occupancy events. Projections are recomputed on every call.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/utils"
)

const (
	DefaultDeliveryTime = "09:00"
	DefaultReturnTime   = "18:00"
	MaxRangeDays        = 62
)

type clock struct{ hour, minute int }

type Projector struct {
	delivery clock
	ret      clock
}

// NewProjector returns a projector placing projected deliveries and returns at
// the given HH:MM times. Empty strings select the defaults.
func NewProjector(deliveryTime, returnTime string) (*Projector, error) {
	if deliveryTime == "" {
		deliveryTime = DefaultDeliveryTime
	}
	if returnTime == "" {
		returnTime = DefaultReturnTime
	}
	dh, dm, err := utils.ParseClock(deliveryTime)
	if err != nil {
		return nil, fmt.Errorf("delivery time: %w", err)
	}
	rh, rm, err := utils.ParseClock(returnTime)
	if err != nil {
		return nil, fmt.Errorf("return time: %w", err)
	}
	return &Projector{delivery: clock{dh, dm}, ret: clock{rh, rm}}, nil
}

// EventsForDay returns the ordered events of the reservations whose window
// contains day, interpreted in day's location. A log entry entering active or
// completed on day replaces the projected delivery or return time; entries on
// other days are ignored.
func (p *Projector) EventsForDay(day time.Time, reservations []domain.Reservation) []domain.CalendarEvent {
	day = utils.StartOfDay(day)
	events := []domain.CalendarEvent{}
	for i := range reservations {
		events = append(events, p.project(day, &reservations[i])...)
	}
	sortEvents(events)
	return events
}

// EventsForRange returns one schedule per day of the inclusive range.
func (p *Projector) EventsForRange(from, to time.Time, reservations []domain.Reservation) ([]domain.DaySchedule, error) {
	from, to = utils.StartOfDay(from), utils.StartOfDay(to)
	if to.Before(from) {
		return nil, fmt.Errorf("end date must be >= start date")
	}
	if n := utils.DaysBetween(from, to) + 1; n > MaxRangeDays {
		return nil, fmt.Errorf("range of %d days exceeds %d", n, MaxRangeDays)
	}
	var schedule []domain.DaySchedule
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		schedule = append(schedule, domain.DaySchedule{
			Day:    utils.FormatDate(d),
			Events: p.EventsForDay(d, reservations),
		})
	}
	return schedule, nil
}

func (p *Projector) project(day time.Time, r *domain.Reservation) []domain.CalendarEvent {
	start, end, err := r.Window(day.Location())
	if err != nil || day.Before(start) || day.After(end) {
		return nil
	}

	var events []domain.CalendarEvent
	newEvent := func(kind domain.EventKind) domain.CalendarEvent {
		return domain.CalendarEvent{
			ReservationID: r.ID,
			ResourceID:    r.ResourceID,
			ResourceName:  r.ResourceName,
			CustomerName:  r.CustomerName,
			Status:        r.Status,
			Kind:          kind,
		}
	}

	// delivery
	if at, ok := latestOn(r, domain.ReservationStatusActive, day); ok {
		ev := newEvent(domain.EventDelivery)
		ev.At = &at
		events = append(events, ev)
	} else if day.Equal(start) {
		at := utils.At(day, p.delivery.hour, p.delivery.minute)
		ev := newEvent(domain.EventDelivery)
		ev.At = &at
		ev.Projected = true
		events = append(events, ev)
	}

	// return
	if at, ok := latestOn(r, domain.ReservationStatusCompleted, day); ok {
		ev := newEvent(domain.EventReturn)
		ev.At = &at
		events = append(events, ev)
	} else if day.Equal(end) {
		at := utils.At(day, p.ret.hour, p.ret.minute)
		ev := newEvent(domain.EventReturn)
		ev.At = &at
		ev.Projected = true
		events = append(events, ev)
	}

	if day.After(start) && day.Before(end) {
		ev := newEvent(domain.EventOccupancy)
		ev.AllDay = true
		events = append(events, ev)
	}
	return events
}

// latestOn returns the time of the last log entry entering status s on day.
func latestOn(r *domain.Reservation, s domain.ReservationStatus, day time.Time) (time.Time, bool) {
	for i := len(r.StatusChangeLogs) - 1; i >= 0; i-- {
		c := r.StatusChangeLogs[i]
		if c.NewStatus == s && utils.SameDay(c.ChangedAt, day) {
			return c.ChangedAt.In(day.Location()), true
		}
	}
	return time.Time{}, false
}

var kindOrder = map[domain.EventKind]int{
	domain.EventOccupancy: 0,
	domain.EventDelivery:  1,
	domain.EventReturn:    2,
}

// sortEvents puts all-day events first, then timed events by time of day,
// then untimed events. Ties break on reservation id and kind.
func sortEvents(events []domain.CalendarEvent) {
	rank := func(e domain.CalendarEvent) int {
		switch {
		case e.AllDay:
			return 0
		case e.At != nil:
			return 1
		}
		return 2
	}
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra < rb
		}
		if a.At != nil && b.At != nil && !a.At.Equal(*b.At) {
			return a.At.Before(*b.At)
		}
		if a.ReservationID != b.ReservationID {
			return a.ReservationID < b.ReservationID
		}
		return kindOrder[a.Kind] < kindOrder[b.Kind]
	})
}
