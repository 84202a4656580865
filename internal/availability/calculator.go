// Package availability computes how many units of a resource are free from
// the full reservation set. Everything here is a pure function of its inputs;
// the cached count stored on a resource is never consulted.
package availability

import (
	"fmt"
	"time"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/utils"
)

const (
	DefaultHorizonDays = 14
	// MaxRangeDays bounds ForDays.
	MaxRangeDays = 366
)

type Calculator struct {
	HorizonDays int
}

func NewCalculator(horizonDays int) *Calculator {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	return &Calculator{HorizonDays: horizonDays}
}

// Counts reports whether r holds a unit as of asOf.
//
// Confirmed, active and overtime reservations count on every date, including
// ones whose dates already passed. Any other reservation counts when its
// window overlaps [asOf, asOf+HorizonDays], whatever its status.
func (c *Calculator) Counts(r *domain.Reservation, asOf time.Time) bool {
	if r.Status.HoldsUnit() {
		return true
	}
	from := utils.StartOfDay(asOf)
	return r.Overlaps(from, from.AddDate(0, 0, c.HorizonDays))
}

// Demand counts the reservations of res that hold a unit as of asOf.
func (c *Calculator) Demand(res *domain.Resource, reservations []domain.Reservation, asOf time.Time) int {
	n := 0
	for i := range reservations {
		if reservations[i].ResourceID == res.ID && c.Counts(&reservations[i], asOf) {
			n++
		}
	}
	return n
}

// Available returns the free units of res as of asOf, always within
// [0, TotalUnits].
func (c *Calculator) Available(res *domain.Resource, reservations []domain.Reservation, asOf time.Time) int {
	return res.ClampUnits(res.TotalUnits - c.Demand(res, reservations, asOf))
}

// ForDays evaluates Available for every day in the inclusive range.
func (c *Calculator) ForDays(res *domain.Resource, reservations []domain.Reservation, from, to time.Time) ([]domain.DayAvailability, error) {
	from, to = utils.StartOfDay(from), utils.StartOfDay(to)
	if to.Before(from) {
		return nil, fmt.Errorf("end date must be >= start date")
	}
	if n := utils.DaysBetween(from, to) + 1; n > MaxRangeDays {
		return nil, fmt.Errorf("range of %d days exceeds %d", n, MaxRangeDays)
	}

	var days []domain.DayAvailability
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, domain.DayAvailability{
			Day:       utils.FormatDate(d),
			Available: c.Available(res, reservations, d),
		})
	}
	return days, nil
}

// Board joins the catalog with live availability. Only offerable
// resources are returned when offerableOnly is set; offerability is judged
// on the live count rather than the cached one.
func (c *Calculator) Board(resources []domain.Resource, reservations []domain.Reservation, asOf time.Time, offerableOnly bool) []domain.ResourceAvailability {
	board := make([]domain.ResourceAvailability, 0, len(resources))
	for i := range resources {
		res := &resources[i]
		avail := c.Available(res, reservations, asOf)
		if offerableOnly && (res.Status != domain.ResourceStatusActive || avail == 0) {
			continue
		}
		board = append(board, domain.ResourceAvailability{Resource: *res, Available: avail})
	}
	return board
}
