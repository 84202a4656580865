package service_test

import (
	"context"
	"testing"

	"camrent-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapacityReconciler_RepairsDrift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res := &domain.Resource{Name: "Fuji X-T5", TotalUnits: 3, CachedAvailable: 0, Status: domain.ResourceStatusActive}
	require.NoError(t, f.store.Resources().Create(ctx, res))

	result, err := f.reconciler.Reconcile(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 0, result.Previous)
	assert.Equal(t, 3, result.Available)
	assert.Equal(t, 3, f.cached(t, res.ID))

	again, err := f.reconciler.Reconcile(ctx, res.ID)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, 3, again.Available)
}

func TestCapacityReconciler_ClampsOverbooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res := f.addResource(t, "Fuji X-T5", 1)
	// both requests start beyond the horizon so neither blocks the other
	var ids []int32
	for _, start := range []string{"2025-07-01", "2025-07-05"} {
		rv, _, err := f.svc.Create(ctx, request(res.ID, start, start))
		require.NoError(t, err)
		ids = append(ids, rv.ID)
	}
	for _, id := range ids {
		_, err := f.svc.Advance(ctx, id, 0, "staff")
		require.NoError(t, err)
	}

	result, err := f.reconciler.Reconcile(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, result.Overbooked)
	assert.Equal(t, 2, result.Demand)
	assert.Equal(t, 0, result.Available)
	assert.Equal(t, 1, f.notifier.count(domain.NotificationWarning))
}

func TestCapacityReconciler_ReconcileAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := &domain.Resource{Name: "A", TotalUnits: 2, CachedAvailable: 2, Status: domain.ResourceStatusActive}
	b := &domain.Resource{Name: "B", TotalUnits: 4, CachedAvailable: 1, Status: domain.ResourceStatusRetired}
	require.NoError(t, f.store.Resources().Create(ctx, a))
	require.NoError(t, f.store.Resources().Create(ctx, b))

	results, err := f.reconciler.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Changed)
	assert.True(t, results[1].Changed)
	assert.Equal(t, 4, f.cached(t, b.ID))

	f.store.failAvailability = true
	require.NoError(t, f.store.Resources().Create(ctx, &domain.Resource{Name: "C", TotalUnits: 1, Status: domain.ResourceStatusActive}))
	results, err = f.reconciler.ReconcileAll(ctx)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Len(t, results, 2)
}

func TestCapacityReconciler_UnknownResource(t *testing.T) {
	f := newFixture(t)
	_, err := f.reconciler.Reconcile(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
