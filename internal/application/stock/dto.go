package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/catalog"
	"github.com/retailops/backend/internal/domain/stock"
)

// AdjustStockRequest carries the parameters of a stock adjustment
type AdjustStockRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	StoreID   uuid.UUID `json:"store_id" binding:"required"`
	Delta     int64     `json:"delta" binding:"required"`
	Type      string    `json:"type" binding:"required,movementtype"`
	Reason    string    `json:"reason" binding:"max=200"`
	Notes     string    `json:"notes"`
}

// TransferStockRequest carries the parameters of a stock transfer
type TransferStockRequest struct {
	ProductID   uuid.UUID `json:"product_id" binding:"required"`
	FromStoreID uuid.UUID `json:"from_store_id" binding:"required"`
	ToStoreID   uuid.UUID `json:"to_store_id" binding:"required"`
	Quantity    int64     `json:"quantity" binding:"required,gt=0"`
	Reason      string    `json:"reason" binding:"max=200"`
	Notes       string    `json:"notes"`
}

// RecordMovementRequest is the low-level primitive request: an arbitrary
// movement type with an explicit signed quantity. Callers that own their
// own semantics (PO receiving, POS sale completion) use this directly.
type RecordMovementRequest struct {
	ProductID     uuid.UUID  `json:"product_id" binding:"required"`
	StoreID       uuid.UUID  `json:"store_id" binding:"required"`
	Type          string     `json:"type" binding:"required,movementtype"`
	Quantity      int64      `json:"quantity" binding:"required"`
	Reason        string     `json:"reason" binding:"max=200"`
	Reference     *uuid.UUID `json:"reference,omitempty"`
	ReferenceType string     `json:"reference_type" binding:"max=50"`
	Notes         string     `json:"notes"`
}

// MovementHistoryFilter narrows the movement history query.
// Any combination of fields may be set, including none.
type MovementHistoryFilter struct {
	ProductID *uuid.UUID `form:"product_id"`
	StoreID   *uuid.UUID `form:"store_id"`
	Type      *string    `form:"type"`
	DateFrom  *time.Time `form:"date_from" time_format:"2006-01-02T15:04:05Z07:00"`
	DateTo    *time.Time `form:"date_to" time_format:"2006-01-02T15:04:05Z07:00"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// AlertListFilter narrows the alert listing query
type AlertListFilter struct {
	ProductID *uuid.UUID `form:"product_id"`
	StoreID   *uuid.UUID `form:"store_id"`
	Type      *string    `form:"type"`
	Status    *string    `form:"status"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ProductStockResponse is the product snapshot returned after a mutation
type ProductStockResponse struct {
	ID                 uuid.UUID `json:"id"`
	Code               string    `json:"code"`
	Name               string    `json:"name"`
	Stock              int64     `json:"stock"`
	TrackInventory     bool      `json:"track_inventory"`
	AllowNegativeStock bool      `json:"allow_negative_stock"`
	MinStock           *int64    `json:"min_stock,omitempty"`
	MaxStock           *int64    `json:"max_stock,omitempty"`
	Cost               *string   `json:"cost,omitempty"`
	Version            int       `json:"version"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ToProductStockResponse converts a product to its response form
func ToProductStockResponse(p *catalog.Product) *ProductStockResponse {
	resp := &ProductStockResponse{
		ID:                 p.ID,
		Code:               p.Code,
		Name:               p.Name,
		Stock:              p.Stock,
		TrackInventory:     p.TrackInventory,
		AllowNegativeStock: p.AllowNegativeStock,
		MinStock:           p.MinStock,
		MaxStock:           p.MaxStock,
		Version:            p.Version,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.Cost != nil {
		cost := p.Cost.StringFixed(2)
		resp.Cost = &cost
	}
	return resp
}

// MovementResponse is the wire form of a ledger entry
type MovementResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	StoreID        uuid.UUID  `json:"store_id"`
	Type           string     `json:"type"`
	Quantity       int64      `json:"quantity"`
	QuantityBefore int64      `json:"quantity_before"`
	QuantityAfter  int64      `json:"quantity_after"`
	Reason         string     `json:"reason,omitempty"`
	Reference      *uuid.UUID `json:"reference,omitempty"`
	ReferenceType  string     `json:"reference_type,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedBy      uuid.UUID  `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ToMovementResponse converts a movement to its response form
func ToMovementResponse(m *stock.StockMovement) *MovementResponse {
	return &MovementResponse{
		ID:             m.ID,
		ProductID:      m.ProductID,
		StoreID:        m.StoreID,
		Type:           string(m.Type),
		Quantity:       m.Quantity,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		Reason:         m.Reason,
		Reference:      m.Reference,
		ReferenceType:  m.ReferenceType,
		Notes:          m.Notes,
		CreatedBy:      m.CreatedBy,
		CreatedAt:      m.CreatedAt,
	}
}

// TransferResponse pairs the two halves of a committed transfer
type TransferResponse struct {
	Product     *ProductStockResponse `json:"product"`
	TransferOut *MovementResponse     `json:"transfer_out"`
	TransferIn  *MovementResponse     `json:"transfer_in"`
}

// AlertResponse is the wire form of a threshold alert
type AlertResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	StoreID        uuid.UUID  `json:"store_id"`
	Type           string     `json:"type"`
	Threshold      int64      `json:"threshold"`
	CurrentStock   int64      `json:"current_stock"`
	Status         string     `json:"status"`
	AcknowledgedBy *uuid.UUID `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedBy     *uuid.UUID `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ToAlertResponse converts an alert to its response form
func ToAlertResponse(a *stock.StockAlert) *AlertResponse {
	return &AlertResponse{
		ID:             a.ID,
		ProductID:      a.ProductID,
		StoreID:        a.StoreID,
		Type:           string(a.Type),
		Threshold:      a.Threshold,
		CurrentStock:   a.CurrentStock,
		Status:         string(a.Status),
		AcknowledgedBy: a.AcknowledgedBy,
		AcknowledgedAt: a.AcknowledgedAt,
		ResolvedBy:     a.ResolvedBy,
		ResolvedAt:     a.ResolvedAt,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// ProductValuation is one line of the valuation report
type ProductValuation struct {
	ProductID uuid.UUID `json:"product_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Stock     int64     `json:"stock"`
	Cost      string    `json:"cost"`
	Value     string    `json:"value"`
}

// ValuationResponse is the stock valuation read model: current snapshot
// times unit cost, summed over active tracked products with a cost.
type ValuationResponse struct {
	TotalValue string             `json:"total_value"`
	TotalItems int                `json:"total_items"`
	PerProduct []ProductValuation `json:"per_product"`
	ComputedAt time.Time          `json:"computed_at"`
}
