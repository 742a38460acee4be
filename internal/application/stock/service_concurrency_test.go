package stock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/retailops/backend/internal/domain/stock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Concurrent mutations against the same product are the classic lost
// update race. These tests drive the service from many goroutines and
// verify the invariants the optimistic locking protects: conservation of
// quantity and at-most-one-active alert per scope.

func TestConcurrentAdjustConservation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, 1000, nil, nil, true)

	// Contention makes conflicts certain; give the retry loop room.
	env.svc.SetMaxRetries(200)

	const workers = 8
	const opsPerWorker = 25

	var netDelta int64
	var succeeded int64
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				delta := int64(1)
				if (w+i)%2 == 0 {
					delta = -1
				}
				_, err := env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
					ProductID: p.ID,
					StoreID:   env.storeA,
					Delta:     delta,
					Type:      string(stock.MovementTypeAdjustment),
				})
				if err == nil {
					atomic.AddInt64(&netDelta, delta)
					atomic.AddInt64(&succeeded, 1)
				}
			}
		}(w)
	}
	wg.Wait()

	reloaded, err := env.products.FindByIDForTenant(ctx, env.tenantID, p.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(1000)+atomic.LoadInt64(&netDelta), reloaded.Stock,
		"final stock equals initial plus the sum of committed deltas")

	entries := env.movements.all()
	assert.Equal(t, atomic.LoadInt64(&succeeded), int64(len(entries)),
		"exactly one ledger entry per committed mutation")

	var ledgerSum int64
	for i := range entries {
		ledgerSum += entries[i].Quantity
		assert.Equal(t, entries[i].QuantityBefore+entries[i].Quantity, entries[i].QuantityAfter)
	}
	assert.Equal(t, atomic.LoadInt64(&netDelta), ledgerSum,
		"ledger conserves the net quantity change")
}

func TestConcurrentThresholdCrossingAlertDedup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Stock hovers around the minimum so every mutation crosses the
	// boundary in one direction or the other.
	p := env.seedProduct(t, 10, minOf(10), nil, true)
	env.svc.SetMaxRetries(200)

	const workers = 6
	const opsPerWorker = 20

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				delta := int64(3)
				if (w+i)%2 == 0 {
					delta = -3
				}
				_, _ = env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
					ProductID: p.ID,
					StoreID:   env.storeA,
					Delta:     delta,
					Type:      string(stock.MovementTypeAdjustment),
				})
			}
		}(w)
	}
	wg.Wait()

	for _, alertType := range stock.AllAlertTypes {
		n := env.alerts.activeCount(p.ID, env.storeA, alertType)
		assert.LessOrEqual(t, n, 1, "at most one active %s alert", alertType)
	}

	// Settle with one quiet mutation and verify the final alert state
	// matches the evaluator's verdict for the final stock level.
	_, err := env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
		ProductID: p.ID,
		StoreID:   env.storeA,
		Delta:     1,
		Type:      string(stock.MovementTypeAdjustment),
	})
	require.NoError(t, err)

	reloaded, err := env.products.FindByIDForTenant(ctx, env.tenantID, p.ID)
	require.NoError(t, err)

	desired := stock.DecisionByType(stock.Evaluate(reloaded.Stock, reloaded.MinStock, reloaded.MaxStock))
	for _, alertType := range stock.AllAlertTypes {
		_, want := desired[alertType]
		got := env.alerts.activeCount(p.ID, env.storeA, alertType) == 1
		assert.Equal(t, want, got, "settled %s alert state for stock %d", alertType, reloaded.Stock)
	}
}
