package domain

import "time"

type EventKind string

const (
	EventDelivery  EventKind = "delivery"
	EventReturn    EventKind = "return"
	EventOccupancy EventKind = "occupancy"
)

// CalendarEvent is derived from a reservation for a single day. Projected
// events are defaults; actual events carry the time from the status log.
type CalendarEvent struct {
	ReservationID int32             `json:"reservationId"`
	ResourceID    int32             `json:"resourceId"`
	ResourceName  string            `json:"resourceName"`
	CustomerName  string            `json:"customerName"`
	Status        ReservationStatus `json:"status"`
	Kind          EventKind         `json:"kind"`
	AllDay        bool              `json:"allDay"`
	Projected     bool              `json:"projected"`
	At            *time.Time        `json:"at,omitempty"`
}

type DaySchedule struct {
	Day    string          `json:"day"`
	Events []CalendarEvent `json:"events"`
}

// DayAvailability is one row of a per-day availability range.
type DayAvailability struct {
	Day       string `json:"day"`
	Available int    `json:"available"`
}

// ResourceAvailability pairs a resource with its live availability.
type ResourceAvailability struct {
	Resource  Resource `json:"resource"`
	Available int      `json:"available"`
}
