package stock

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/catalog"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	tenantID  uuid.UUID
	userID    uuid.UUID
	storeA    uuid.UUID
	storeB    uuid.UUID
	products  *memProductRepo
	movements *memMovementRepo
	alerts    *memAlertRepo
	svc       *StockService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		tenantID:  uuid.New(),
		userID:    uuid.New(),
		storeA:    uuid.New(),
		storeB:    uuid.New(),
		products:  newMemProductRepo(),
		movements: newMemMovementRepo(),
		alerts:    newMemAlertRepo(),
	}
	scope := NewNoOpTransactionScope(env.products, env.movements, env.alerts)
	env.svc = NewStockService(scope, env.products, env.movements, env.alerts, zap.NewNop())
	return env
}

func (e *testEnv) seedProduct(t *testing.T, stockQty int64, minStock, maxStock *int64, allowNegative bool) *catalog.Product {
	t.Helper()
	code := "SKU-" + strings.ToUpper(uuid.NewString()[:8])
	p, err := catalog.NewProduct(e.tenantID, code, "Test Product", "pcs")
	require.NoError(t, err)
	p.Stock = stockQty
	p.MinStock = minStock
	p.MaxStock = maxStock
	p.AllowNegativeStock = allowNegative
	require.NoError(t, e.products.Create(context.Background(), p))
	return p
}

func minOf(v int64) *int64 { return &v }

func TestAdjustLowStockScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, 5, minOf(10), nil, false)

	resp, err := env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
		ProductID: p.ID,
		StoreID:   env.storeA,
		Delta:     -3,
		Type:      string(stock.MovementTypeAdjustment),
		Reason:    "cycle count",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Stock)

	entries := env.movements.all()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(5), entries[0].QuantityBefore)
	assert.Equal(t, int64(2), entries[0].QuantityAfter)
	assert.Equal(t, int64(-3), entries[0].Quantity)
	assert.Equal(t, env.userID, entries[0].CreatedBy)

	open, err := env.alerts.FindOpen(ctx, env.tenantID, p.ID, env.storeA, stock.AlertTypeLowStock)
	require.NoError(t, err)
	assert.Equal(t, stock.AlertStatusActive, open.Status)
	assert.Equal(t, int64(10), open.Threshold)
	assert.Equal(t, int64(2), open.CurrentStock)

	// Second adjustment drains the stock: low_stock resolves and
	// out_of_stock takes over.
	resp, err = env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
		ProductID: p.ID,
		StoreID:   env.storeA,
		Delta:     -2,
		Type:      string(stock.MovementTypeAdjustment),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), resp.Stock)

	_, err = env.alerts.FindOpen(ctx, env.tenantID, p.ID, env.storeA, stock.AlertTypeLowStock)
	assert.ErrorIs(t, err, shared.ErrNotFound, "low_stock alert must be resolved")

	out, err := env.alerts.FindOpen(ctx, env.tenantID, p.ID, env.storeA, stock.AlertTypeOutOfStock)
	require.NoError(t, err)
	assert.Equal(t, stock.AlertStatusActive, out.Status)
	assert.Equal(t, int64(0), out.Threshold)
}

func TestAdjustInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, 5, nil, nil, false)

	_, err := env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
		ProductID: p.ID,
		StoreID:   env.storeA,
		Delta:     -10,
		Type:      string(stock.MovementTypeAdjustment),
	})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INSUFFICIENT_STOCK", domainErr.Code)

	assert.Empty(t, env.movements.all(), "no ledger entry on failure")
	count, err := env.alerts.CountForTenant(ctx, env.tenantID, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Zero(t, count, "no alert changes on failure")

	reloaded, err := env.products.FindByIDForTenant(ctx, env.tenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), reloaded.Stock)
}

func TestAdjustPreconditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("unknown product", func(t *testing.T) {
		_, err := env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
			ProductID: uuid.New(),
			StoreID:   env.storeA,
			Delta:     1,
			Type:      string(stock.MovementTypeRestock),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})

	t.Run("tracking disabled", func(t *testing.T) {
		p := env.seedProduct(t, 5, nil, nil, false)
		p.DisableInventoryTracking()
		require.NoError(t, env.products.Save(ctx, p))

		_, err := env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
			ProductID: p.ID,
			StoreID:   env.storeA,
			Delta:     1,
			Type:      string(stock.MovementTypeRestock),
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_OPERATION", domainErr.Code)
	})

	t.Run("invalid movement type", func(t *testing.T) {
		p := env.seedProduct(t, 5, nil, nil, false)
		_, err := env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
			ProductID: p.ID,
			StoreID:   env.storeA,
			Delta:     1,
			Type:      "shrinkage",
		})
		assert.Error(t, err)
	})

	t.Run("negative stock allowed when configured", func(t *testing.T) {
		p := env.seedProduct(t, 5, nil, nil, true)
		resp, err := env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
			ProductID: p.ID,
			StoreID:   env.storeA,
			Delta:     -10,
			Type:      string(stock.MovementTypeAdjustment),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(-5), resp.Stock)
	})
}

func TestBoundaryExactZeroing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, 5, minOf(10), nil, false)

	resp, err := env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
		ProductID: p.ID,
		StoreID:   env.storeA,
		Delta:     -5,
		Type:      string(stock.MovementTypeSale),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), resp.Stock)

	_, err = env.alerts.FindOpen(ctx, env.tenantID, p.ID, env.storeA, stock.AlertTypeLowStock)
	assert.ErrorIs(t, err, shared.ErrNotFound, "out_of_stock supersedes low_stock at zero")

	out, err := env.alerts.FindOpen(ctx, env.tenantID, p.ID, env.storeA, stock.AlertTypeOutOfStock)
	require.NoError(t, err)
	assert.True(t, out.IsActive())
}

func TestAlertAutoResolution(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, 2, minOf(10), nil, false)

	adjust := func(delta int64) {
		t.Helper()
		_, err := env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
			ProductID: p.ID,
			StoreID:   env.storeA,
			Delta:     delta,
			Type:      string(stock.MovementTypeAdjustment),
		})
		require.NoError(t, err)
	}

	adjust(-1) // stock 1, low_stock raised
	first, err := env.alerts.FindOpen(ctx, env.tenantID, p.ID, env.storeA, stock.AlertTypeLowStock)
	require.NoError(t, err)

	adjust(20) // stock 21, clears
	_, err = env.alerts.FindOpen(ctx, env.tenantID, p.ID, env.storeA, stock.AlertTypeLowStock)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	resolved, err := env.alerts.FindByIDForTenant(ctx, env.tenantID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, stock.AlertStatusResolved, resolved.Status)
	assert.Nil(t, resolved.ResolvedBy, "automatic resolution carries no user")
	assert.NotNil(t, resolved.ResolvedAt)

	adjust(-15) // stock 6, breaches again: a NEW record appears
	second, err := env.alerts.FindOpen(ctx, env.tenantID, p.ID, env.storeA, stock.AlertTypeLowStock)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, int64(6), second.CurrentStock)
}

func TestAcknowledgedAlertIsNotReopened(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, 11, minOf(10), nil, false)

	adjust := func(delta int64) {
		t.Helper()
		_, err := env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
			ProductID: p.ID,
			StoreID:   env.storeA,
			Delta:     delta,
			Type:      string(stock.MovementTypeAdjustment),
		})
		require.NoError(t, err)
	}

	adjust(-2) // stock 9, low_stock raised
	raised, err := env.alerts.FindOpen(ctx, env.tenantID, p.ID, env.storeA, stock.AlertTypeLowStock)
	require.NoError(t, err)

	acked, err := env.svc.Acknowledge(ctx, env.tenantID, raised.ID, env.userID)
	require.NoError(t, err)
	assert.Equal(t, string(stock.AlertStatusAcknowledged), acked.Status)

	// Still breached: the acknowledged record absorbs the refresh, no
	// new active record is created.
	adjust(-3) // stock 6
	assert.Zero(t, env.alerts.activeCount(p.ID, env.storeA, stock.AlertTypeLowStock))
	refreshed, err := env.alerts.FindByIDForTenant(ctx, env.tenantID, raised.ID)
	require.NoError(t, err)
	assert.Equal(t, stock.AlertStatusAcknowledged, refreshed.Status)
	assert.Equal(t, int64(6), refreshed.CurrentStock)

	// Condition clears: the acknowledged alert resolves.
	adjust(10) // stock 16
	closed, err := env.alerts.FindByIDForTenant(ctx, env.tenantID, raised.ID)
	require.NoError(t, err)
	assert.Equal(t, stock.AlertStatusResolved, closed.Status)

	// A fresh breach after resolution creates a new active record.
	adjust(-7) // stock 9
	fresh, err := env.alerts.FindOpen(ctx, env.tenantID, p.ID, env.storeA, stock.AlertTypeLowStock)
	require.NoError(t, err)
	assert.NotEqual(t, raised.ID, fresh.ID)
	assert.True(t, fresh.IsActive())
}

func TestTransferNeutrality(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, 10, nil, nil, false)

	resp, err := env.svc.Transfer(ctx, env.tenantID, env.userID, TransferStockRequest{
		ProductID:   p.ID,
		FromStoreID: env.storeA,
		ToStoreID:   env.storeB,
		Quantity:    4,
		Reason:      "rebalance",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10), resp.Product.Stock, "transfer is net-zero on global stock")

	entries := env.movements.all()
	require.Len(t, entries, 2)
	out, in := entries[0], entries[1]

	assert.Equal(t, stock.MovementTypeTransferOut, out.Type)
	assert.Equal(t, int64(-4), out.Quantity)
	assert.Equal(t, int64(10), out.QuantityBefore)
	assert.Equal(t, int64(6), out.QuantityAfter)
	assert.Equal(t, env.storeA, out.StoreID)

	assert.Equal(t, stock.MovementTypeTransferIn, in.Type)
	assert.Equal(t, int64(4), in.Quantity)
	assert.Equal(t, out.QuantityAfter, in.QuantityBefore, "halves chain sequentially")
	assert.Equal(t, int64(10), in.QuantityAfter)
	assert.Equal(t, env.storeB, in.StoreID)

	assert.Equal(t, "Transfer", out.ReferenceType)
	assert.Equal(t, "Transfer", in.ReferenceType)
	assert.Nil(t, out.Reference)
	assert.Nil(t, in.Reference)
}

func TestTransferEvaluatesBothStores(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, 10, minOf(15), nil, false)

	_, err := env.svc.Transfer(ctx, env.tenantID, env.userID, TransferStockRequest{
		ProductID:   p.ID,
		FromStoreID: env.storeA,
		ToStoreID:   env.storeB,
		Quantity:    4,
	})
	require.NoError(t, err)

	// Same global figure (10 <= 15) seen by both evaluations: one
	// low_stock alert per store.
	for _, storeID := range []uuid.UUID{env.storeA, env.storeB} {
		a, err := env.alerts.FindOpen(ctx, env.tenantID, p.ID, storeID, stock.AlertTypeLowStock)
		require.NoError(t, err)
		assert.Equal(t, int64(10), a.CurrentStock)
	}
}

func TestTransferValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, 10, nil, nil, false)

	t.Run("same store", func(t *testing.T) {
		_, err := env.svc.Transfer(ctx, env.tenantID, env.userID, TransferStockRequest{
			ProductID:   p.ID,
			FromStoreID: env.storeA,
			ToStoreID:   env.storeA,
			Quantity:    1,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_OPERATION", domainErr.Code)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		_, err := env.svc.Transfer(ctx, env.tenantID, env.userID, TransferStockRequest{
			ProductID:   p.ID,
			FromStoreID: env.storeA,
			ToStoreID:   env.storeB,
			Quantity:    0,
		})
		assert.Error(t, err)
	})

	t.Run("insufficient stock at source", func(t *testing.T) {
		_, err := env.svc.Transfer(ctx, env.tenantID, env.userID, TransferStockRequest{
			ProductID:   p.ID,
			FromStoreID: env.storeA,
			ToStoreID:   env.storeB,
			Quantity:    11,
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSUFFICIENT_STOCK", domainErr.Code)
		assert.Empty(t, env.movements.all())
	})
}

func TestRecordMovementWithReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, 0, nil, nil, false)
	poID := uuid.New()

	resp, err := env.svc.RecordMovement(ctx, env.tenantID, env.userID, RecordMovementRequest{
		ProductID:     p.ID,
		StoreID:       env.storeA,
		Type:          string(stock.MovementTypeRestock),
		Quantity:      24,
		Reference:     &poID,
		ReferenceType: "PurchaseOrder",
		Reason:        "po receipt",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), resp.QuantityBefore)
	assert.Equal(t, int64(24), resp.QuantityAfter)
	assert.Equal(t, "PurchaseOrder", resp.ReferenceType)
	require.NotNil(t, resp.Reference)
	assert.Equal(t, poID, *resp.Reference)

	reloaded, err := env.products.FindByIDForTenant(ctx, env.tenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(24), reloaded.Stock)
}

func TestHistoryFiltersAndPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, 100, nil, nil, false)
	other := env.seedProduct(t, 100, nil, nil, false)

	record := func(productID, storeID uuid.UUID, mtype stock.MovementType, qty int64) {
		t.Helper()
		_, err := env.svc.RecordMovement(ctx, env.tenantID, env.userID, RecordMovementRequest{
			ProductID: productID,
			StoreID:   storeID,
			Type:      string(mtype),
			Quantity:  qty,
		})
		require.NoError(t, err)
	}

	record(p.ID, env.storeA, stock.MovementTypeRestock, 10)
	record(p.ID, env.storeA, stock.MovementTypeSale, -2)
	record(p.ID, env.storeB, stock.MovementTypeAdjustment, -1)
	record(other.ID, env.storeA, stock.MovementTypeSale, -5)

	t.Run("no filters returns everything newest first", func(t *testing.T) {
		page, err := env.svc.History(ctx, env.tenantID, MovementHistoryFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), page.Total)
		require.Len(t, page.Items, 4)
		assert.Equal(t, other.ID, page.Items[0].ProductID, "newest entry first")
	})

	t.Run("filter by product", func(t *testing.T) {
		page, err := env.svc.History(ctx, env.tenantID, MovementHistoryFilter{ProductID: &p.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
	})

	t.Run("filter by store and type", func(t *testing.T) {
		saleType := string(stock.MovementTypeSale)
		page, err := env.svc.History(ctx, env.tenantID, MovementHistoryFilter{
			StoreID: &env.storeA,
			Type:    &saleType,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("invalid type filter rejected", func(t *testing.T) {
		bad := "shrinkage"
		_, err := env.svc.History(ctx, env.tenantID, MovementHistoryFilter{Type: &bad})
		assert.Error(t, err)
	})

	t.Run("date range excludes everything in the future", func(t *testing.T) {
		from := time.Now().Add(time.Hour)
		page, err := env.svc.History(ctx, env.tenantID, MovementHistoryFilter{DateFrom: &from})
		require.NoError(t, err)
		assert.Zero(t, page.Total)
	})

	t.Run("pagination", func(t *testing.T) {
		page, err := env.svc.History(ctx, env.tenantID, MovementHistoryFilter{Page: 2, PageSize: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(4), page.Total)
		assert.Len(t, page.Items, 1)
		assert.Equal(t, 2, page.TotalPages)
	})
}

func TestConservationSequential(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, 100, nil, nil, true)

	deltas := []int64{10, -25, 3, -1, 40, -7, -30, 5}
	var sum int64
	for _, d := range deltas {
		_, err := env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
			ProductID: p.ID,
			StoreID:   env.storeA,
			Delta:     d,
			Type:      string(stock.MovementTypeAdjustment),
		})
		require.NoError(t, err)
		sum += d
	}

	reloaded, err := env.products.FindByIDForTenant(ctx, env.tenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100)+sum, reloaded.Stock)

	last, err := env.movements.FindLastForProduct(ctx, env.tenantID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, reloaded.Stock, last.QuantityAfter)

	// The ledger chains: every entry's after is the next one's before.
	entries := env.movements.all()
	for i := 1; i < len(entries); i++ {
		assert.Equal(t, entries[i-1].QuantityAfter, entries[i].QuantityBefore)
	}
}

func TestLedgerEntriesAreImmutable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, 50, nil, nil, false)

	recorded, err := env.svc.RecordMovement(ctx, env.tenantID, env.userID, RecordMovementRequest{
		ProductID: p.ID,
		StoreID:   env.storeA,
		Type:      string(stock.MovementTypeSale),
		Quantity:  -5,
		Reason:    "walk-in sale",
	})
	require.NoError(t, err)

	committed, err := env.movements.FindByIDForTenant(ctx, env.tenantID, recorded.ID)
	require.NoError(t, err)
	snapshot := *committed

	// Plenty of churn against the same product after the commit.
	for _, d := range []int64{20, -8, 3} {
		_, err := env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
			ProductID: p.ID,
			StoreID:   env.storeA,
			Delta:     d,
			Type:      string(stock.MovementTypeAdjustment),
		})
		require.NoError(t, err)
	}
	_, err = env.svc.Transfer(ctx, env.tenantID, env.userID, TransferStockRequest{
		ProductID:   p.ID,
		FromStoreID: env.storeA,
		ToStoreID:   env.storeB,
		Quantity:    2,
	})
	require.NoError(t, err)

	reread, err := env.movements.FindByIDForTenant(ctx, env.tenantID, recorded.ID)
	require.NoError(t, err)
	assert.Equal(t, snapshot, *reread, "committed entry must be untouched by later operations")
}

type conflictingProductRepo struct {
	catalog.ProductRepository
	failuresLeft int32
	conflicts    int32
}

func (r *conflictingProductRepo) SaveStockWithLock(ctx context.Context, p *catalog.Product) error {
	if atomic.AddInt32(&r.failuresLeft, -1) >= 0 {
		atomic.AddInt32(&r.conflicts, 1)
		return shared.ErrConcurrencyConflict
	}
	return r.ProductRepository.SaveStockWithLock(ctx, p)
}

func TestConflictRetry(t *testing.T) {
	t.Run("recovers within the retry limit", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		p := env.seedProduct(t, 10, nil, nil, false)

		conflicting := &conflictingProductRepo{ProductRepository: env.products, failuresLeft: 2}
		scope := NewNoOpTransactionScope(conflicting, env.movements, env.alerts)
		svc := NewStockService(scope, conflicting, env.movements, env.alerts, zap.NewNop())

		resp, err := svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
			ProductID: p.ID,
			StoreID:   env.storeA,
			Delta:     -1,
			Type:      string(stock.MovementTypeSale),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(9), resp.Stock)
		assert.Equal(t, int32(2), atomic.LoadInt32(&conflicting.conflicts))
		assert.Len(t, env.movements.all(), 1, "exactly one ledger entry despite retries")
	})

	t.Run("surfaces conflict after exhausting retries", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		p := env.seedProduct(t, 10, nil, nil, false)

		conflicting := &conflictingProductRepo{ProductRepository: env.products, failuresLeft: 100}
		scope := NewNoOpTransactionScope(conflicting, env.movements, env.alerts)
		svc := NewStockService(scope, conflicting, env.movements, env.alerts, zap.NewNop())
		svc.SetMaxRetries(2)

		_, err := svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
			ProductID: p.ID,
			StoreID:   env.storeA,
			Delta:     -1,
			Type:      string(stock.MovementTypeSale),
		})
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Empty(t, env.movements.all())
	})
}

type flakyAlertRepo struct {
	stock.AlertRepository
	failuresLeft int32
}

func (r *flakyAlertRepo) FindOpen(ctx context.Context, tenantID, productID, storeID uuid.UUID, alertType stock.AlertType) (*stock.StockAlert, error) {
	if atomic.AddInt32(&r.failuresLeft, -1) >= 0 {
		return nil, errors.New("alert store unavailable")
	}
	return r.AlertRepository.FindOpen(ctx, tenantID, productID, storeID, alertType)
}

func TestAlertFailureDoesNotFailMutationAndIsRetried(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, 5, minOf(10), nil, false)

	// All three per-type lookups of the inline reconciliation fail.
	flaky := &flakyAlertRepo{AlertRepository: env.alerts, failuresLeft: 3}
	scope := NewNoOpTransactionScope(env.products, env.movements, flaky)
	svc := NewStockService(scope, env.products, env.movements, flaky, zap.NewNop())

	worker := NewAlertRetryWorker(env.products, flaky, NewAlertReconciler(zap.NewNop()), zap.NewNop(), 16)
	worker.Start(ctx)
	defer worker.Stop()
	svc.SetAlertRetryWorker(worker)

	resp, err := svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
		ProductID: p.ID,
		StoreID:   env.storeA,
		Delta:     -3,
		Type:      string(stock.MovementTypeAdjustment),
	})
	require.NoError(t, err, "committed movement must not fail on alert store errors")
	assert.Equal(t, int64(2), resp.Stock)
	assert.Len(t, env.movements.all(), 1)

	// The replay eventually lands the alert.
	require.Eventually(t, func() bool {
		return env.alerts.activeCount(p.ID, env.storeA, stock.AlertTypeLowStock) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

type fakeValuationCache struct {
	store map[uuid.UUID]*ValuationResponse
	sets  int
}

func newFakeValuationCache() *fakeValuationCache {
	return &fakeValuationCache{store: make(map[uuid.UUID]*ValuationResponse)}
}

func (c *fakeValuationCache) Get(_ context.Context, tenantID uuid.UUID, _ *uuid.UUID) (*ValuationResponse, bool) {
	v, ok := c.store[tenantID]
	return v, ok
}

func (c *fakeValuationCache) Set(_ context.Context, tenantID uuid.UUID, _ *uuid.UUID, v *ValuationResponse) {
	c.store[tenantID] = v
	c.sets++
}

func (c *fakeValuationCache) Invalidate(_ context.Context, tenantID uuid.UUID) {
	delete(c.store, tenantID)
}

func TestValuation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	withCost := func(p *catalog.Product, cost string) {
		t.Helper()
		d, err := decimal.NewFromString(cost)
		require.NoError(t, err)
		require.NoError(t, p.SetCost(&d))
		require.NoError(t, env.products.Save(ctx, p))
	}

	a := env.seedProduct(t, 10, nil, nil, false)
	withCost(a, "2.50")
	b := env.seedProduct(t, 4, nil, nil, false)
	withCost(b, "1.25")
	env.seedProduct(t, 99, nil, nil, false) // no cost: excluded

	untracked := env.seedProduct(t, 7, nil, nil, false)
	untracked.DisableInventoryTracking()
	withCost(untracked, "100")

	resp, err := env.svc.Valuation(ctx, env.tenantID, nil)
	require.NoError(t, err)

	assert.Equal(t, "30.00", resp.TotalValue) // 10*2.50 + 4*1.25
	assert.Equal(t, 2, resp.TotalItems)
	assert.Len(t, resp.PerProduct, 2)

	t.Run("cache round trip and invalidation", func(t *testing.T) {
		cache := newFakeValuationCache()
		env.svc.SetValuationCache(cache)

		first, err := env.svc.Valuation(ctx, env.tenantID, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, cache.sets)

		second, err := env.svc.Valuation(ctx, env.tenantID, nil)
		require.NoError(t, err)
		assert.Same(t, first, second, "second read served from cache")

		_, err = env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
			ProductID: a.ID,
			StoreID:   env.storeA,
			Delta:     -1,
			Type:      string(stock.MovementTypeSale),
		})
		require.NoError(t, err)

		third, err := env.svc.Valuation(ctx, env.tenantID, nil)
		require.NoError(t, err)
		assert.Equal(t, "27.50", third.TotalValue, "mutation invalidates the cache")
	})
}

func TestAcknowledgeAndResolve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, 5, minOf(10), nil, false)

	_, err := env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
		ProductID: p.ID,
		StoreID:   env.storeA,
		Delta:     -1,
		Type:      string(stock.MovementTypeSale),
	})
	require.NoError(t, err)

	raised, err := env.alerts.FindOpen(ctx, env.tenantID, p.ID, env.storeA, stock.AlertTypeLowStock)
	require.NoError(t, err)

	t.Run("acknowledge unknown alert", func(t *testing.T) {
		_, err := env.svc.Acknowledge(ctx, env.tenantID, uuid.New(), env.userID)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})

	t.Run("acknowledge then manual resolve", func(t *testing.T) {
		acked, err := env.svc.Acknowledge(ctx, env.tenantID, raised.ID, env.userID)
		require.NoError(t, err)
		require.NotNil(t, acked.AcknowledgedBy)
		assert.Equal(t, env.userID, *acked.AcknowledgedBy)

		resolved, err := env.svc.ResolveAlert(ctx, env.tenantID, raised.ID, env.userID)
		require.NoError(t, err)
		assert.Equal(t, string(stock.AlertStatusResolved), resolved.Status)
		require.NotNil(t, resolved.ResolvedBy)
		assert.Equal(t, env.userID, *resolved.ResolvedBy)
	})

	t.Run("cannot acknowledge resolved alert", func(t *testing.T) {
		_, err := env.svc.Acknowledge(ctx, env.tenantID, raised.ID, env.userID)
		assert.Error(t, err)
	})
}

func TestActiveAlertsListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.seedProduct(t, 5, minOf(10), nil, false)

	_, err := env.svc.Adjust(ctx, env.tenantID, env.userID, AdjustStockRequest{
		ProductID: p.ID,
		StoreID:   env.storeA,
		Delta:     -5,
		Type:      string(stock.MovementTypeSale),
	})
	require.NoError(t, err)

	t.Run("defaults to active only", func(t *testing.T) {
		page, err := env.svc.ActiveAlerts(ctx, env.tenantID, AlertListFilter{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, string(stock.AlertTypeOutOfStock), page.Items[0].Type)
	})

	t.Run("status filter widens the view", func(t *testing.T) {
		status := string(stock.AlertStatusResolved)
		page, err := env.svc.ActiveAlerts(ctx, env.tenantID, AlertListFilter{Status: &status})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})

	t.Run("invalid type filter rejected", func(t *testing.T) {
		bad := "critical"
		_, err := env.svc.ActiveAlerts(ctx, env.tenantID, AlertListFilter{Type: &bad})
		assert.Error(t, err)
	})
}
