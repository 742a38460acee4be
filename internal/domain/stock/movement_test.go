package stock

import (
	"testing"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStockMovement(t *testing.T) {
	tenantID := uuid.New()
	productID := uuid.New()
	storeID := uuid.New()
	userID := uuid.New()

	t.Run("creates movement with derived quantity after", func(t *testing.T) {
		m, err := NewStockMovement(tenantID, productID, storeID, MovementTypeAdjustment, -3, 5, userID)
		require.NoError(t, err)

		assert.Equal(t, MovementTypeAdjustment, m.Type)
		assert.Equal(t, int64(-3), m.Quantity)
		assert.Equal(t, int64(5), m.QuantityBefore)
		assert.Equal(t, int64(2), m.QuantityAfter)
		assert.Equal(t, userID, m.CreatedBy)
		assert.NotEqual(t, uuid.Nil, m.ID)
	})

	t.Run("quantity after always equals before plus quantity", func(t *testing.T) {
		cases := []struct {
			quantity int64
			before   int64
		}{
			{10, 0},
			{-4, 10},
			{1, -5},
			{100, 9999},
		}
		for _, tc := range cases {
			m, err := NewStockMovement(tenantID, productID, storeID, MovementTypeAdjustment, tc.quantity, tc.before, userID)
			require.NoError(t, err)
			assert.Equal(t, tc.before+tc.quantity, m.QuantityAfter)
		}
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		_, err := NewStockMovement(tenantID, productID, storeID, MovementTypeAdjustment, 0, 5, userID)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_MOVEMENT", domainErr.Code)
	})

	t.Run("rejects invalid type", func(t *testing.T) {
		_, err := NewStockMovement(tenantID, productID, storeID, MovementType("shrinkage"), 1, 0, userID)
		require.Error(t, err)
	})

	t.Run("rejects negative quantity on inbound types", func(t *testing.T) {
		for _, mt := range []MovementType{MovementTypeRestock, MovementTypeReturn, MovementTypeTransferIn, MovementTypeInitial} {
			_, err := NewStockMovement(tenantID, productID, storeID, mt, -1, 10, userID)
			assert.Error(t, err, "type %s", mt)
		}
	})

	t.Run("rejects positive quantity on outbound types", func(t *testing.T) {
		for _, mt := range []MovementType{MovementTypeSale, MovementTypeTransferOut, MovementTypeDamage} {
			_, err := NewStockMovement(tenantID, productID, storeID, mt, 1, 10, userID)
			assert.Error(t, err, "type %s", mt)
		}
	})

	t.Run("adjustment allows either sign", func(t *testing.T) {
		_, err := NewStockMovement(tenantID, productID, storeID, MovementTypeAdjustment, 7, 0, userID)
		assert.NoError(t, err)
		_, err = NewStockMovement(tenantID, productID, storeID, MovementTypeAdjustment, -7, 10, userID)
		assert.NoError(t, err)
	})

	t.Run("rejects missing identifiers", func(t *testing.T) {
		_, err := NewStockMovement(uuid.Nil, productID, storeID, MovementTypeAdjustment, 1, 0, userID)
		assert.Error(t, err)
		_, err = NewStockMovement(tenantID, uuid.Nil, storeID, MovementTypeAdjustment, 1, 0, userID)
		assert.Error(t, err)
		_, err = NewStockMovement(tenantID, productID, uuid.Nil, MovementTypeAdjustment, 1, 0, userID)
		assert.Error(t, err)
		_, err = NewStockMovement(tenantID, productID, storeID, MovementTypeAdjustment, 1, 0, uuid.Nil)
		assert.Error(t, err)
	})
}

func TestStockMovementBuilders(t *testing.T) {
	m, err := NewStockMovement(uuid.New(), uuid.New(), uuid.New(), MovementTypeRestock, 10, 0, uuid.New())
	require.NoError(t, err)

	ref := uuid.New()
	m.WithReason("cycle count").WithReference("PurchaseOrder", ref).WithNotes("dock B")

	assert.Equal(t, "cycle count", m.Reason)
	assert.Equal(t, "PurchaseOrder", m.ReferenceType)
	require.NotNil(t, m.Reference)
	assert.Equal(t, ref, *m.Reference)
	assert.Equal(t, "dock B", m.Notes)
	assert.True(t, m.IsIncrease())
}

func TestMovementTypeClassification(t *testing.T) {
	for _, mt := range AllMovementTypes {
		assert.True(t, mt.IsValid(), "type %s", mt)
		assert.False(t, mt.IsInbound() && mt.IsOutbound(), "type %s cannot be both directions", mt)
	}
	assert.False(t, MovementType("bogus").IsValid())
}
