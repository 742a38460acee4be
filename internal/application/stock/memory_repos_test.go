package stock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/catalog"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/domain/stock"
)

// In-memory repositories with the same locking semantics as the real
// persistence layer: optimistic version checks on the product, dedup-safe
// alert creation. Guarded by mutexes so concurrency tests are meaningful.

type memProductRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]catalog.Product
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{items: make(map[uuid.UUID]catalog.Product)}
}

func (r *memProductRepo) Create(_ context.Context, p *catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[p.ID]; ok {
		return shared.ErrAlreadyExists
	}
	r.items[p.ID] = *p
	return nil
}

func (r *memProductRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok || p.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (r *memProductRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []catalog.Product
	for _, p := range r.items {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProductRepo) CountForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.items {
		if p.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (r *memProductRepo) Save(_ context.Context, p *catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = *p
	return nil
}

func (r *memProductRepo) SaveStockWithLock(_ context.Context, p *catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[p.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if cur.Version != p.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.items[p.ID] = *p
	return nil
}

func (r *memProductRepo) FindTrackedForTenant(_ context.Context, tenantID uuid.UUID) ([]catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []catalog.Product
	for _, p := range r.items {
		if p.TenantID == tenantID && p.TrackInventory && p.IsActive() {
			out = append(out, p)
		}
	}
	return out, nil
}

var _ catalog.ProductRepository = (*memProductRepo)(nil)

type memMovementRepo struct {
	mu      sync.Mutex
	entries []stock.StockMovement
}

func newMemMovementRepo() *memMovementRepo {
	return &memMovementRepo{}
}

func (r *memMovementRepo) Create(_ context.Context, m *stock.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *m)
	return nil
}

func (r *memMovementRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*stock.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id && r.entries[i].TenantID == tenantID {
			cp := r.entries[i]
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memMovementRepo) matches(m *stock.StockMovement, tenantID uuid.UUID, filter shared.Filter) bool {
	if m.TenantID != tenantID {
		return false
	}
	for key, value := range filter.Filters {
		switch key {
		case "product_id":
			if m.ProductID != value.(uuid.UUID) {
				return false
			}
		case "store_id":
			if m.StoreID != value.(uuid.UUID) {
				return false
			}
		case "type":
			if string(m.Type) != value.(string) {
				return false
			}
		case "date_from":
			if m.CreatedAt.Before(value.(time.Time)) {
				return false
			}
		case "date_to":
			if m.CreatedAt.After(value.(time.Time)) {
				return false
			}
		}
	}
	return true
}

// FindAllForTenant returns matches newest-first (reverse insertion order)
func (r *memMovementRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, filter shared.Filter) ([]stock.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []stock.StockMovement
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.matches(&r.entries[i], tenantID, filter) {
			matched = append(matched, r.entries[i])
		}
	}
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(matched) {
		return nil, nil
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (r *memMovementRepo) CountForTenant(_ context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.entries {
		if r.matches(&r.entries[i], tenantID, filter) {
			n++
		}
	}
	return n, nil
}

func (r *memMovementRepo) FindLastForProduct(_ context.Context, tenantID, productID uuid.UUID) (*stock.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].TenantID == tenantID && r.entries[i].ProductID == productID {
			cp := r.entries[i]
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

// all returns a snapshot of every entry, oldest first
func (r *memMovementRepo) all() []stock.StockMovement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]stock.StockMovement, len(r.entries))
	copy(out, r.entries)
	return out
}

var _ stock.MovementRepository = (*memMovementRepo)(nil)

type memAlertRepo struct {
	mu     sync.Mutex
	alerts map[uuid.UUID]stock.StockAlert
	order  []uuid.UUID
}

func newMemAlertRepo() *memAlertRepo {
	return &memAlertRepo{alerts: make(map[uuid.UUID]stock.StockAlert)}
}

func (r *memAlertRepo) findOpenLocked(tenantID, productID, storeID uuid.UUID, alertType stock.AlertType) *stock.StockAlert {
	for _, id := range r.order {
		a := r.alerts[id]
		if a.TenantID == tenantID && a.ProductID == productID && a.StoreID == storeID &&
			a.Type == alertType && a.IsOpen() {
			cp := a
			return &cp
		}
	}
	return nil
}

func (r *memAlertRepo) CreateIfAbsent(_ context.Context, alert *stock.StockAlert) (*stock.StockAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing := r.findOpenLocked(alert.TenantID, alert.ProductID, alert.StoreID, alert.Type); existing != nil {
		return existing, nil
	}
	r.alerts[alert.ID] = *alert
	r.order = append(r.order, alert.ID)
	cp := *alert
	return &cp, nil
}

func (r *memAlertRepo) Save(_ context.Context, alert *stock.StockAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.alerts[alert.ID]; !ok {
		return shared.ErrNotFound
	}
	// Mirror the partial unique index: a save may not produce a second
	// open alert in the same scope.
	if alert.IsOpen() {
		if other := r.findOpenLocked(alert.TenantID, alert.ProductID, alert.StoreID, alert.Type); other != nil && other.ID != alert.ID {
			return shared.ErrAlreadyExists
		}
	}
	r.alerts[alert.ID] = *alert
	return nil
}

func (r *memAlertRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*stock.StockAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok || a.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	cp := a
	return &cp, nil
}

func (r *memAlertRepo) FindOpen(_ context.Context, tenantID, productID, storeID uuid.UUID, alertType stock.AlertType) (*stock.StockAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.findOpenLocked(tenantID, productID, storeID, alertType); a != nil {
		return a, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memAlertRepo) matches(a *stock.StockAlert, tenantID uuid.UUID, filter shared.Filter) bool {
	if a.TenantID != tenantID {
		return false
	}
	for key, value := range filter.Filters {
		switch key {
		case "product_id":
			if a.ProductID != value.(uuid.UUID) {
				return false
			}
		case "store_id":
			if a.StoreID != value.(uuid.UUID) {
				return false
			}
		case "type":
			if string(a.Type) != value.(string) {
				return false
			}
		case "status":
			if string(a.Status) != value.(string) {
				return false
			}
		}
	}
	return true
}

func (r *memAlertRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, filter shared.Filter) ([]stock.StockAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []stock.StockAlert
	for i := len(r.order) - 1; i >= 0; i-- {
		a := r.alerts[r.order[i]]
		if r.matches(&a, tenantID, filter) {
			matched = append(matched, a)
		}
	}
	start := (filter.Page - 1) * filter.PageSize
	if start >= len(matched) {
		return nil, nil
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (r *memAlertRepo) CountForTenant(_ context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range r.order {
		a := r.alerts[id]
		if r.matches(&a, tenantID, filter) {
			n++
		}
	}
	return n, nil
}

// activeCount reports active alerts per (product, store, type) scope
func (r *memAlertRepo) activeCount(productID, storeID uuid.UUID, alertType stock.AlertType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.alerts {
		if a.ProductID == productID && a.StoreID == storeID && a.Type == alertType && a.Status == stock.AlertStatusActive {
			n++
		}
	}
	return n
}

var _ stock.AlertRepository = (*memAlertRepo)(nil)
