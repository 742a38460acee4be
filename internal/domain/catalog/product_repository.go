package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
)

// ProductRepository defines the persistence contract for products.
// SaveStockWithLock is the only sanctioned write path for stock changes:
// it performs a conditional update against the previous version and
// reports shared.ErrConcurrencyConflict when another writer got there first.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Product, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Product, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
	Save(ctx context.Context, product *Product) error
	SaveStockWithLock(ctx context.Context, product *Product) error
	// FindTrackedForTenant returns active, inventory-tracked products,
	// the population over which valuation is computed.
	FindTrackedForTenant(ctx context.Context, tenantID uuid.UUID) ([]Product, error)
}
