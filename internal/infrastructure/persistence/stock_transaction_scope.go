package persistence

import (
	"context"

	appstock "github.com/retailops/backend/internal/application/stock"
	"github.com/retailops/backend/internal/domain/catalog"
	"github.com/retailops/backend/internal/domain/stock"
	"gorm.io/gorm"
)

// GormTransactionScope implements appstock.TransactionScope using GORM
// transactions. Every repository handed to the callback is bound to the
// same *gorm.DB transaction, so the product write and the ledger append
// commit or roll back together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the function within a database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appstock.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides repositories bound to a transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Products returns a product repository bound to the transaction
func (r *gormTransactionalRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

// Movements returns a movement repository bound to the transaction
func (r *gormTransactionalRepositories) Movements() stock.MovementRepository {
	return NewGormStockMovementRepository(r.tx)
}

// Alerts returns an alert repository bound to the transaction
func (r *gormTransactionalRepositories) Alerts() stock.AlertRepository {
	return NewGormStockAlertRepository(r.tx)
}

// Ensure interfaces are implemented
var _ appstock.TransactionScope = (*GormTransactionScope)(nil)
var _ appstock.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
