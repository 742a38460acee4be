package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
)

// AlertType classifies a threshold alert
type AlertType string

const (
	AlertTypeLowStock   AlertType = "low_stock"
	AlertTypeOutOfStock AlertType = "out_of_stock"
	AlertTypeOverstock  AlertType = "overstock"
)

// AllAlertTypes lists every alert type, in evaluation order
var AllAlertTypes = []AlertType{
	AlertTypeOutOfStock,
	AlertTypeLowStock,
	AlertTypeOverstock,
}

// IsValid checks if the alert type is valid
func (t AlertType) IsValid() bool {
	switch t {
	case AlertTypeLowStock, AlertTypeOutOfStock, AlertTypeOverstock:
		return true
	}
	return false
}

// AlertStatus represents the lifecycle state of an alert
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
)

// StockAlert records a threshold breach for a product at a store.
// For a given (tenant, product, store, type) at most one record is
// active at any time; the rest of the lifecycle is historical.
type StockAlert struct {
	shared.BaseEntity
	TenantID       uuid.UUID   `gorm:"type:uuid;not null;index:idx_alert_scope,priority:1"`
	ProductID      uuid.UUID   `gorm:"type:uuid;not null;index:idx_alert_scope,priority:2"`
	StoreID        uuid.UUID   `gorm:"type:uuid;not null;index:idx_alert_scope,priority:3"`
	Type           AlertType   `gorm:"type:varchar(20);not null;index:idx_alert_scope,priority:4"`
	Threshold      int64       `gorm:"not null"`
	CurrentStock   int64       `gorm:"not null"`
	Status         AlertStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	AcknowledgedBy *uuid.UUID  `gorm:"type:uuid"`
	AcknowledgedAt *time.Time  `gorm:""`
	ResolvedBy     *uuid.UUID  `gorm:"type:uuid"`
	ResolvedAt     *time.Time  `gorm:""`
}

// TableName returns the table name for GORM
func (StockAlert) TableName() string {
	return "stock_alerts"
}

// NewStockAlert creates an active alert for a fresh threshold breach
func NewStockAlert(
	tenantID, productID, storeID uuid.UUID,
	alertType AlertType,
	threshold, currentStock int64,
) (*StockAlert, error) {
	if !alertType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ALERT", "Invalid alert type")
	}
	if tenantID == uuid.Nil || productID == uuid.Nil || storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ALERT", "Tenant, product and store IDs are required")
	}

	return &StockAlert{
		BaseEntity:   shared.NewBaseEntity(),
		TenantID:     tenantID,
		ProductID:    productID,
		StoreID:      storeID,
		Type:         alertType,
		Threshold:    threshold,
		CurrentStock: currentStock,
		Status:       AlertStatusActive,
	}, nil
}

// UpdateCurrentStock refreshes the stock snapshot on an alert whose
// condition still holds. Only meaningful while the breach is ongoing.
func (a *StockAlert) UpdateCurrentStock(currentStock int64) {
	a.CurrentStock = currentStock
	a.UpdatedAt = time.Now()
}

// Acknowledge marks the alert as seen by a user. Only active alerts can
// be acknowledged; an acknowledged alert is never returned to active.
func (a *StockAlert) Acknowledge(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return shared.NewDomainError("INVALID_ALERT_TRANSITION", "Acknowledging user is required")
	}
	if a.Status != AlertStatusActive {
		return shared.NewDomainError("INVALID_ALERT_TRANSITION",
			"Only active alerts can be acknowledged")
	}

	now := time.Now()
	a.Status = AlertStatusAcknowledged
	a.AcknowledgedBy = &userID
	a.AcknowledgedAt = &now
	a.UpdatedAt = now

	return nil
}

// Resolve closes the alert. A nil userID marks an automatic resolution
// by reconciliation; a non-nil one records a manual close.
func (a *StockAlert) Resolve(userID *uuid.UUID) error {
	if a.Status == AlertStatusResolved {
		return shared.NewDomainError("INVALID_ALERT_TRANSITION", "Alert is already resolved")
	}

	now := time.Now()
	a.Status = AlertStatusResolved
	a.ResolvedBy = userID
	a.ResolvedAt = &now
	a.UpdatedAt = now

	return nil
}

// IsActive returns true if the alert is in the active state
func (a *StockAlert) IsActive() bool {
	return a.Status == AlertStatusActive
}

// IsOpen returns true if the alert has not been resolved yet
func (a *StockAlert) IsOpen() bool {
	return a.Status == AlertStatusActive || a.Status == AlertStatusAcknowledged
}
