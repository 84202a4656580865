package service

import (
	"context"
	"time"

	"camrent-backend/internal/availability"
	"camrent-backend/internal/calendar"
	"camrent-backend/internal/domain"
	"camrent-backend/internal/repository"
)

// Read-side services load snapshots and hand them to the pure calculators.
// src is usually the redis snapshot cache in front of the store.

type availabilityService struct {
	src  repository.Snapshotter
	calc *availability.Calculator
}

func NewAvailabilityService(src repository.Snapshotter, calc *availability.Calculator) AvailabilityService {
	return &availabilityService{src: src, calc: calc}
}

func (s *availabilityService) Board(ctx context.Context, asOf time.Time, offerableOnly bool) ([]domain.ResourceAvailability, error) {
	resources, err := s.src.ResourceSnapshot(ctx)
	if err != nil {
		return nil, translate(err, "board", "resource", 0, 0)
	}
	reservations, err := s.src.ReservationSnapshot(ctx)
	if err != nil {
		return nil, translate(err, "board", "reservation", 0, 0)
	}
	return s.calc.Board(resources, reservations, asOf, offerableOnly), nil
}

func (s *availabilityService) ForResource(ctx context.Context, resourceID int32, from, to time.Time) ([]domain.DayAvailability, error) {
	resources, err := s.src.ResourceSnapshot(ctx)
	if err != nil {
		return nil, translate(err, "availability", "resource", resourceID, 0)
	}
	var res *domain.Resource
	for i := range resources {
		if resources[i].ID == resourceID {
			res = &resources[i]
			break
		}
	}
	if res == nil {
		return nil, &domain.NotFoundError{Entity: "resource", ID: resourceID}
	}
	reservations, err := s.src.ReservationSnapshot(ctx)
	if err != nil {
		return nil, translate(err, "availability", "reservation", 0, 0)
	}
	days, err := s.calc.ForDays(res, reservations, from, to)
	if err != nil {
		return nil, &domain.ValidationError{Field: "range", Reason: err.Error()}
	}
	return days, nil
}

type calendarService struct {
	src       repository.Snapshotter
	projector *calendar.Projector
}

func NewCalendarService(src repository.Snapshotter, projector *calendar.Projector) CalendarService {
	return &calendarService{src: src, projector: projector}
}

func (s *calendarService) EventsForDay(ctx context.Context, day time.Time) ([]domain.CalendarEvent, error) {
	reservations, err := s.src.ReservationSnapshot(ctx)
	if err != nil {
		return nil, translate(err, "calendar", "reservation", 0, 0)
	}
	return s.projector.EventsForDay(day, reservations), nil
}

func (s *calendarService) EventsForRange(ctx context.Context, from, to time.Time) ([]domain.DaySchedule, error) {
	reservations, err := s.src.ReservationSnapshot(ctx)
	if err != nil {
		return nil, translate(err, "calendar", "reservation", 0, 0)
	}
	schedule, err := s.projector.EventsForRange(from, to, reservations)
	if err != nil {
		return nil, &domain.ValidationError{Field: "range", Reason: err.Error()}
	}
	return schedule, nil
}
