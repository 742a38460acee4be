package catalog

import (
	"github.com/retailops/backend/internal/domain/shared"
)

// Event types for the catalog domain
const (
	EventTypeStockChanged = "catalog.product.stock_changed"
)

// StockChangedEvent is emitted when a product's on-hand quantity changes
type StockChangedEvent struct {
	shared.BaseDomainEvent
	ProductCode    string `json:"product_code"`
	QuantityBefore int64  `json:"quantity_before"`
	QuantityAfter  int64  `json:"quantity_after"`
	Delta          int64  `json:"delta"`
}

// NewStockChangedEvent creates a new stock changed event
func NewStockChangedEvent(product *Product, before, after, delta int64) *StockChangedEvent {
	return &StockChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockChanged, "Product", product.ID, product.TenantID),
		ProductCode:     product.Code,
		QuantityBefore:  before,
		QuantityAfter:   after,
		Delta:           delta,
	}
}
