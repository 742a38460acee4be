package stock

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
)

// MovementType classifies a stock movement
type MovementType string

const (
	MovementTypeSale        MovementType = "sale"
	MovementTypeAdjustment  MovementType = "adjustment"
	MovementTypeTransferIn  MovementType = "transfer_in"
	MovementTypeTransferOut MovementType = "transfer_out"
	MovementTypeReturn      MovementType = "return"
	MovementTypeDamage      MovementType = "damage"
	MovementTypeRestock     MovementType = "restock"
	MovementTypeInitial     MovementType = "initial"
)

// AllMovementTypes lists every valid movement type
var AllMovementTypes = []MovementType{
	MovementTypeSale,
	MovementTypeAdjustment,
	MovementTypeTransferIn,
	MovementTypeTransferOut,
	MovementTypeReturn,
	MovementTypeDamage,
	MovementTypeRestock,
	MovementTypeInitial,
}

// IsValid checks if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeSale, MovementTypeAdjustment, MovementTypeTransferIn,
		MovementTypeTransferOut, MovementTypeReturn, MovementTypeDamage,
		MovementTypeRestock, MovementTypeInitial:
		return true
	}
	return false
}

// IsInbound returns true for types that may only increase stock
func (t MovementType) IsInbound() bool {
	switch t {
	case MovementTypeTransferIn, MovementTypeReturn, MovementTypeRestock, MovementTypeInitial:
		return true
	}
	return false
}

// IsOutbound returns true for types that may only decrease stock
func (t MovementType) IsOutbound() bool {
	switch t {
	case MovementTypeSale, MovementTypeTransferOut, MovementTypeDamage:
		return true
	}
	return false
}

// StockMovement is one immutable ledger entry: a signed quantity change
// together with the running total before and after it. Entries are only
// ever created, never updated or deleted.
type StockMovement struct {
	shared.BaseEntity
	TenantID       uuid.UUID    `gorm:"type:uuid;not null;index:idx_movement_tenant_product,priority:1"`
	ProductID      uuid.UUID    `gorm:"type:uuid;not null;index:idx_movement_tenant_product,priority:2"`
	StoreID        uuid.UUID    `gorm:"type:uuid;not null;index"`
	Type           MovementType `gorm:"type:varchar(20);not null;index"`
	Quantity       int64        `gorm:"not null"`
	QuantityBefore int64        `gorm:"not null"`
	QuantityAfter  int64        `gorm:"not null"`
	Reason         string       `gorm:"type:varchar(200)"`
	Reference      *uuid.UUID   `gorm:"type:uuid;index"`
	ReferenceType  string       `gorm:"type:varchar(50)"`
	Notes          string       `gorm:"type:text"`
	CreatedBy      uuid.UUID    `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a ledger entry for a quantity change.
// quantityBefore is the running total the change applies to; the entry's
// QuantityAfter is derived, never supplied, so the chaining invariant
// holds by construction.
func NewStockMovement(
	tenantID, productID, storeID uuid.UUID,
	movementType MovementType,
	quantity, quantityBefore int64,
	createdBy uuid.UUID,
) (*StockMovement, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MOVEMENT", "Tenant ID is required")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MOVEMENT", "Product ID is required")
	}
	if storeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MOVEMENT", "Store ID is required")
	}
	if createdBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MOVEMENT", "Acting user ID is required")
	}
	if !movementType.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT",
			fmt.Sprintf("Invalid movement type: %s", movementType))
	}
	if quantity == 0 {
		return nil, shared.NewDomainError("INVALID_MOVEMENT", "Movement quantity cannot be zero")
	}
	if movementType.IsInbound() && quantity < 0 {
		return nil, shared.NewDomainError("INVALID_MOVEMENT",
			fmt.Sprintf("Movement type %s requires a positive quantity", movementType))
	}
	if movementType.IsOutbound() && quantity > 0 {
		return nil, shared.NewDomainError("INVALID_MOVEMENT",
			fmt.Sprintf("Movement type %s requires a negative quantity", movementType))
	}

	return &StockMovement{
		BaseEntity:     shared.NewBaseEntity(),
		TenantID:       tenantID,
		ProductID:      productID,
		StoreID:        storeID,
		Type:           movementType,
		Quantity:       quantity,
		QuantityBefore: quantityBefore,
		QuantityAfter:  quantityBefore + quantity,
		CreatedBy:      createdBy,
	}, nil
}

// WithReason sets the movement reason
func (m *StockMovement) WithReason(reason string) *StockMovement {
	m.Reason = reason
	return m
}

// WithReference links the movement to an originating entity
func (m *StockMovement) WithReference(referenceType string, reference uuid.UUID) *StockMovement {
	m.ReferenceType = referenceType
	m.Reference = &reference
	return m
}

// WithReferenceType tags the movement with an origin kind without
// linking a specific entity. Transfer halves carry only the kind.
func (m *StockMovement) WithReferenceType(referenceType string) *StockMovement {
	m.ReferenceType = referenceType
	return m
}

// WithNotes sets free-form notes
func (m *StockMovement) WithNotes(notes string) *StockMovement {
	m.Notes = notes
	return m
}

// IsIncrease returns true if this movement increased stock
func (m *StockMovement) IsIncrease() bool {
	return m.Quantity > 0
}
