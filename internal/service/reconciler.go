package service

import (
	"context"
	"errors"
	"log/slog"

	"camrent-backend/internal/availability"
	"camrent-backend/internal/domain"
	"camrent-backend/internal/logger"
	"camrent-backend/internal/metrics"
	"camrent-backend/internal/repository"
)

// ReconcileResult describes one reconciliation of a resource.
type ReconcileResult struct {
	ResourceID   int32  `json:"resourceId"`
	ResourceName string `json:"resourceName"`
	Previous     int    `json:"previous"`
	Available    int    `json:"available"`
	Demand       int    `json:"demand"`
	TotalUnits   int    `json:"totalUnits"`
	Changed      bool   `json:"changed"`
	// Overbooked is set when more reservations hold a unit than exist.
	Overbooked bool `json:"overbooked"`
}

type capacityReconciler struct {
	store repository.Store
	calc  *availability.Calculator
	clock Clock
	locks *KeyedMutex
	log   *slog.Logger
}

func NewCapacityReconciler(store repository.Store, calc *availability.Calculator, clock Clock, locks *KeyedMutex) CapacityReconciler {
	return &capacityReconciler{
		store: store,
		calc:  calc,
		clock: clock,
		locks: locks,
		log:   logger.WithService("capacity-reconciler"),
	}
}

func (r *capacityReconciler) ReconcileTx(ctx context.Context, tx repository.Tx, resourceID int32) (*ReconcileResult, error) {
	const op = "reconcile"
	res, err := tx.Resources().GetForUpdate(ctx, resourceID)
	if err != nil {
		return nil, translate(err, op, "resource", resourceID, 0)
	}
	reservations, err := tx.Reservations().List(ctx, domain.ReservationFilter{ResourceID: resourceID})
	if err != nil {
		return nil, translate(err, op, "resource", resourceID, res.Version)
	}

	demand := r.calc.Demand(res, reservations, r.clock.Today())
	result := &ReconcileResult{
		ResourceID:   res.ID,
		ResourceName: res.Name,
		Previous:     res.CachedAvailable,
		Available:    res.ClampUnits(res.TotalUnits - demand),
		Demand:       demand,
		TotalUnits:   res.TotalUnits,
		Overbooked:   demand > res.TotalUnits,
	}
	if result.Available != result.Previous {
		if _, err := tx.Resources().UpdateAvailability(ctx, res.ID, res.Version, result.Available); err != nil {
			return nil, translate(err, op, "resource", res.ID, res.Version)
		}
		result.Changed = true
	}
	metrics.IncReconciliation(result.Changed)
	r.log.DebugContext(ctx, "Reconciled capacity", "resourceID", res.ID, "previous", result.Previous,
		"available", result.Available, "demand", demand)
	return result, nil
}

func (r *capacityReconciler) Reconcile(ctx context.Context, resourceID int32) (*ReconcileResult, error) {
	unlock := r.locks.Lock(resourceID)
	defer unlock()

	var result *ReconcileResult
	err := r.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		result, err = r.ReconcileTx(ctx, tx, resourceID)
		return err
	})
	if err != nil {
		return nil, translate(err, "reconcile", "resource", resourceID, 0)
	}
	return result, nil
}

// ReconcileAll reconciles every resource. A failure on one resource does not
// stop the others; all failures are returned joined.
func (r *capacityReconciler) ReconcileAll(ctx context.Context) ([]ReconcileResult, error) {
	resources, err := r.store.Resources().List(ctx)
	if err != nil {
		return nil, translate(err, "reconcileAll", "resource", 0, 0)
	}

	var results []ReconcileResult
	var errs []error
	for _, res := range resources {
		result, err := r.Reconcile(ctx, res.ID)
		if err != nil {
			r.log.ErrorContext(ctx, "Reconciliation failed", "resourceID", res.ID, "error", err)
			errs = append(errs, err)
			continue
		}
		results = append(results, *result)
	}
	return results, errors.Join(errs...)
}
