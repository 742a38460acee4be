package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

// Product represents a product/SKU in the catalog.
// Most product attributes are managed elsewhere; this aggregate owns the
// stock-control subset: the current on-hand quantity, the tracking flags,
// and the alert thresholds. Stock is tenant-global; stores appear only as
// metadata on movements and alerts.
type Product struct {
	shared.TenantAggregateRoot
	Code               string           `gorm:"type:varchar(50);not null;uniqueIndex:idx_product_tenant_code,priority:2"`
	Name               string           `gorm:"type:varchar(200);not null"`
	Unit               string           `gorm:"type:varchar(20);not null"`
	Stock              int64            `gorm:"not null;default:0"`
	TrackInventory     bool             `gorm:"not null;default:true"`
	AllowNegativeStock bool             `gorm:"not null;default:false"`
	MinStock           *int64           `gorm:""`
	MaxStock           *int64           `gorm:""`
	Cost               *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Status             ProductStatus    `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product with inventory tracking enabled
func NewProduct(tenantID uuid.UUID, code, name, unit string) (*Product, error) {
	if err := validateProductCode(code); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if unit == "" {
		return nil, shared.NewDomainError("INVALID_UNIT", "Unit cannot be empty")
	}

	product := &Product{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                strings.ToUpper(code),
		Name:                name,
		Unit:                unit,
		TrackInventory:      true,
		Status:              ProductStatusActive,
	}

	return product, nil
}

// ApplyStockDelta applies a signed quantity change to the current stock.
// It returns the quantity before the change so the caller can build the
// matching ledger entry. The write is not persisted here; callers must
// save through the repository's optimistic-lock path.
func (p *Product) ApplyStockDelta(delta int64) (before int64, err error) {
	if !p.TrackInventory {
		return p.Stock, shared.NewDomainError("INVALID_OPERATION",
			fmt.Sprintf("Inventory tracking is disabled for product %s", p.ID))
	}

	before = p.Stock
	after := before + delta
	if after < 0 && !p.AllowNegativeStock {
		return before, shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("Insufficient stock for product %s: have %d, requested change %d", p.ID, before, delta))
	}

	p.Stock = after
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewStockChangedEvent(p, before, after, delta))

	return before, nil
}

// TouchStock bumps the version without changing the quantity.
// Transfers use this to serialize against concurrent adjustments while
// staying net-zero on the global stock figure.
func (p *Product) TouchStock() error {
	if !p.TrackInventory {
		return shared.NewDomainError("INVALID_OPERATION",
			fmt.Sprintf("Inventory tracking is disabled for product %s", p.ID))
	}
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// HasSufficientStock reports whether a change of delta is allowed
func (p *Product) HasSufficientStock(delta int64) bool {
	return p.AllowNegativeStock || p.Stock+delta >= 0
}

// SetThresholds sets the min/max stock levels used by alert evaluation.
// Nil disables the corresponding threshold.
func (p *Product) SetThresholds(minStock, maxStock *int64) error {
	if minStock != nil && *minStock < 0 {
		return shared.NewDomainError("INVALID_THRESHOLD", "Minimum stock cannot be negative")
	}
	if maxStock != nil && *maxStock < 0 {
		return shared.NewDomainError("INVALID_THRESHOLD", "Maximum stock cannot be negative")
	}
	if minStock != nil && maxStock != nil && *maxStock < *minStock {
		return shared.NewDomainError("INVALID_THRESHOLD", "Maximum stock cannot be below minimum stock")
	}

	p.MinStock = minStock
	p.MaxStock = maxStock
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// SetCost sets the unit cost used for valuation. Nil clears it.
func (p *Product) SetCost(cost *decimal.Decimal) error {
	if cost != nil && cost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Cost cannot be negative")
	}

	p.Cost = cost
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// EnableInventoryTracking turns stock tracking on
func (p *Product) EnableInventoryTracking() {
	p.TrackInventory = true
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// DisableInventoryTracking turns stock tracking off.
// Existing ledger entries are untouched; new mutations are rejected.
func (p *Product) DisableInventoryTracking() {
	p.TrackInventory = false
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// AllowNegative toggles whether the stock may go below zero
func (p *Product) AllowNegative(allowed bool) {
	p.AllowNegativeStock = allowed
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// Deactivate deactivates the product
func (p *Product) Deactivate() error {
	if p.Status != ProductStatusActive {
		return shared.NewDomainError("INVALID_STATE", "Only active products can be deactivated")
	}
	p.Status = ProductStatusInactive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// IsActive returns true if the product is active
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// HasCost returns true if a unit cost is configured
func (p *Product) HasCost() bool {
	return p.Cost != nil
}

// validateProductCode validates the product code (SKU)
func validateProductCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Product code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Product code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Product code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}
