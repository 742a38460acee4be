package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
)

// MovementRepository persists ledger entries. The ledger is append-only:
// there is no update or delete path, by contract.
//
// Supported filter keys for FindAllForTenant/CountForTenant:
// product_id, store_id, type, date_from, date_to.
type MovementRepository interface {
	Create(ctx context.Context, movement *StockMovement) error
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*StockMovement, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]StockMovement, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
	// FindLastForProduct returns the most recent entry for a product,
	// used to cross-check the running total against the product snapshot.
	FindLastForProduct(ctx context.Context, tenantID, productID uuid.UUID) (*StockMovement, error)
}

// AlertRepository persists threshold alerts.
//
// CreateIfAbsent must be dedup-safe under concurrent callers: when an
// open alert for the same (tenant, product, store, type) already
// exists, the existing record is returned instead of a duplicate being
// created. Implementations back this with a partial unique index over
// the non-resolved statuses.
//
// Supported filter keys for FindAllForTenant/CountForTenant:
// product_id, store_id, type, status.
type AlertRepository interface {
	CreateIfAbsent(ctx context.Context, alert *StockAlert) (*StockAlert, error)
	Save(ctx context.Context, alert *StockAlert) error
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*StockAlert, error)
	// FindOpen returns the single active or acknowledged alert for the
	// scope, or shared.ErrNotFound when none is open.
	FindOpen(ctx context.Context, tenantID, productID, storeID uuid.UUID, alertType AlertType) (*StockAlert, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]StockAlert, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)
}
