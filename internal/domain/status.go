package domain

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusCompleted ReservationStatus = "completed"
	ReservationStatusOvertime  ReservationStatus = "overtime"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// ReservationStatuses lists every status in lifecycle order.
var ReservationStatuses = []ReservationStatus{
	ReservationStatusPending,
	ReservationStatusConfirmed,
	ReservationStatusActive,
	ReservationStatusCompleted,
	ReservationStatusOvertime,
	ReservationStatusCancelled,
}

// nextStatus is the default forward path used by Advance. overtime and
// cancelled are only reachable through an operator override.
var nextStatus = map[ReservationStatus]ReservationStatus{
	ReservationStatusPending:   ReservationStatusConfirmed,
	ReservationStatusConfirmed: ReservationStatusActive,
	ReservationStatusActive:    ReservationStatusCompleted,
}

// ParseReservationStatus returns the status named by s.
func ParseReservationStatus(s string) (ReservationStatus, bool) {
	st := ReservationStatus(s)
	return st, st.IsValid()
}

func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusActive,
		ReservationStatusCompleted, ReservationStatusOvertime, ReservationStatusCancelled:
		return true
	}
	return false
}

// Next returns the status Advance moves to, if any.
func (s ReservationStatus) Next() (ReservationStatus, bool) {
	next, ok := nextStatus[s]
	return next, ok
}

// HoldsUnit reports whether a unit is committed to the reservation
// regardless of its dates.
func (s ReservationStatus) HoldsUnit() bool {
	return s == ReservationStatusConfirmed || s == ReservationStatusActive || s == ReservationStatusOvertime
}

type ResourceStatus string

const (
	ResourceStatusActive      ResourceStatus = "active"
	ResourceStatusMaintenance ResourceStatus = "maintenance"
	ResourceStatusRetired     ResourceStatus = "retired"
)

func (s ResourceStatus) IsValid() bool {
	return s == ResourceStatusActive || s == ResourceStatusMaintenance || s == ResourceStatusRetired
}
