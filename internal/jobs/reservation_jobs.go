package jobs

import (
	"context"
	"fmt"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/logger"
	"camrent-backend/internal/utils"
)

// ReconcileCapacity recomputes cached availability for every resource, which
// also releases units held by pending requests that left the horizon.
func (jr *JobRunner) ReconcileCapacity() {
	jr.runWithRecovery("ReconcileCapacity", func() error {
		ctx := context.Background()

		results, err := jr.services.Reconciler.ReconcileAll(ctx)
		changed, overbooked := 0, 0
		for _, r := range results {
			if r.Changed {
				changed++
				logger.Debug("Cached availability corrected",
					"resource_id", r.ResourceID,
					"previous", r.Previous,
					"available", r.Available)
			}
			if r.Overbooked {
				overbooked++
				w := domain.OverbookedWarning{ResourceID: r.ResourceID, ResourceName: r.ResourceName,
					Demand: r.Demand, TotalUnits: r.TotalUnits}
				jr.services.Notifier.Notify(ctx, domain.NotificationWarning, w.Message())
			}
		}
		logger.Info("Reconciled capacity",
			"resources", len(results),
			"changed", changed,
			"overbooked", overbooked)
		return err
	})
}

// RemindOvertime warns staff about active reservations past their end date.
// The status is left alone; moving to overtime is an operator decision.
func (jr *JobRunner) RemindOvertime() {
	jr.runWithRecovery("RemindOvertime", func() error {
		ctx := context.Background()

		active, err := jr.store.Reservations().List(ctx, domain.ReservationFilter{Status: domain.ReservationStatusActive})
		if err != nil {
			return fmt.Errorf("list active reservations: %w", err)
		}

		today := jr.clock.Today()
		count := 0
		for _, r := range active {
			end, err := utils.ParseDate(r.EndDate, jr.clock.Location)
			if err != nil {
				logger.Warn("Skipping reservation with bad end date", "reservation_id", r.ID, "end_date", r.EndDate)
				continue
			}
			if !end.Before(today) {
				continue
			}
			count++
			jr.services.Notifier.Notify(ctx, domain.NotificationWarning,
				fmt.Sprintf("Reservation #%d (%s, %s) was due back on %s and is still out",
					r.ID, r.ResourceName, r.CustomerName, r.EndDate))
		}
		logger.Info("Sent overtime reminders", "count", count)
		return nil
	})
}
