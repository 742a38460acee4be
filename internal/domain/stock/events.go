package stock

import (
	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
)

// Event types for the stock domain
const (
	EventTypeMovementRecorded  = "stock.movement.recorded"
	EventTypeStockTransferred  = "stock.transfer.completed"
	EventTypeAlertRaised       = "stock.alert.raised"
	EventTypeAlertResolved     = "stock.alert.resolved"
	EventTypeAlertAcknowledged = "stock.alert.acknowledged"
)

// MovementRecordedEvent is emitted after a ledger entry is committed
type MovementRecordedEvent struct {
	shared.BaseDomainEvent
	ProductID      uuid.UUID    `json:"product_id"`
	StoreID        uuid.UUID    `json:"store_id"`
	MovementType   MovementType `json:"movement_type"`
	Quantity       int64        `json:"quantity"`
	QuantityBefore int64        `json:"quantity_before"`
	QuantityAfter  int64        `json:"quantity_after"`
}

// NewMovementRecordedEvent creates a new movement recorded event
func NewMovementRecordedEvent(m *StockMovement) *MovementRecordedEvent {
	return &MovementRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMovementRecorded, "StockMovement", m.ID, m.TenantID),
		ProductID:       m.ProductID,
		StoreID:         m.StoreID,
		MovementType:    m.Type,
		Quantity:        m.Quantity,
		QuantityBefore:  m.QuantityBefore,
		QuantityAfter:   m.QuantityAfter,
	}
}

// StockTransferredEvent is emitted after both halves of a transfer commit
type StockTransferredEvent struct {
	shared.BaseDomainEvent
	ProductID   uuid.UUID `json:"product_id"`
	FromStoreID uuid.UUID `json:"from_store_id"`
	ToStoreID   uuid.UUID `json:"to_store_id"`
	Quantity    int64     `json:"quantity"`
}

// NewStockTransferredEvent creates a new stock transferred event
func NewStockTransferredEvent(tenantID, productID, fromStoreID, toStoreID uuid.UUID, quantity int64) *StockTransferredEvent {
	return &StockTransferredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockTransferred, "Product", productID, tenantID),
		ProductID:       productID,
		FromStoreID:     fromStoreID,
		ToStoreID:       toStoreID,
		Quantity:        quantity,
	}
}

// AlertRaisedEvent is emitted when a threshold breach creates a new alert
type AlertRaisedEvent struct {
	shared.BaseDomainEvent
	ProductID    uuid.UUID `json:"product_id"`
	StoreID      uuid.UUID `json:"store_id"`
	AlertType    AlertType `json:"alert_type"`
	Threshold    int64     `json:"threshold"`
	CurrentStock int64     `json:"current_stock"`
}

// NewAlertRaisedEvent creates a new alert raised event
func NewAlertRaisedEvent(a *StockAlert) *AlertRaisedEvent {
	return &AlertRaisedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAlertRaised, "StockAlert", a.ID, a.TenantID),
		ProductID:       a.ProductID,
		StoreID:         a.StoreID,
		AlertType:       a.Type,
		Threshold:       a.Threshold,
		CurrentStock:    a.CurrentStock,
	}
}

// AlertResolvedEvent is emitted when an alert is resolved,
// automatically or by a user
type AlertResolvedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID  `json:"product_id"`
	StoreID    uuid.UUID  `json:"store_id"`
	AlertType  AlertType  `json:"alert_type"`
	ResolvedBy *uuid.UUID `json:"resolved_by,omitempty"`
}

// NewAlertResolvedEvent creates a new alert resolved event
func NewAlertResolvedEvent(a *StockAlert) *AlertResolvedEvent {
	return &AlertResolvedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAlertResolved, "StockAlert", a.ID, a.TenantID),
		ProductID:       a.ProductID,
		StoreID:         a.StoreID,
		AlertType:       a.Type,
		ResolvedBy:      a.ResolvedBy,
	}
}

// AlertAcknowledgedEvent is emitted when a user acknowledges an alert
type AlertAcknowledgedEvent struct {
	shared.BaseDomainEvent
	ProductID      uuid.UUID  `json:"product_id"`
	StoreID        uuid.UUID  `json:"store_id"`
	AlertType      AlertType  `json:"alert_type"`
	AcknowledgedBy *uuid.UUID `json:"acknowledged_by"`
}

// NewAlertAcknowledgedEvent creates a new alert acknowledged event
func NewAlertAcknowledgedEvent(a *StockAlert) *AlertAcknowledgedEvent {
	return &AlertAcknowledgedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAlertAcknowledged, "StockAlert", a.ID, a.TenantID),
		ProductID:       a.ProductID,
		StoreID:         a.StoreID,
		AlertType:       a.Type,
		AcknowledgedBy:  a.AcknowledgedBy,
	}
}
