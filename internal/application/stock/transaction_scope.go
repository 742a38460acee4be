package stock

import (
	"context"

	"github.com/retailops/backend/internal/domain/catalog"
	"github.com/retailops/backend/internal/domain/stock"
)

// TransactionScope provides transactional access to the stock repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically. This is what binds the product-quantity write and the
// ledger append together: a crash between them can never be observed as a
// divergence between the two.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the stock repositories
// within a transaction. All repositories returned share the same
// underlying database transaction.
type TransactionalRepositories interface {
	// Products returns the product repository scoped to the current transaction
	Products() catalog.ProductRepository
	// Movements returns the movement ledger repository scoped to the current transaction
	Movements() stock.MovementRepository
	// Alerts returns the alert repository scoped to the current transaction
	Alerts() stock.AlertRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for tests backed by in-memory repositories.
type NoOpTransactionScope struct {
	productRepo  catalog.ProductRepository
	movementRepo stock.MovementRepository
	alertRepo    stock.AlertRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	productRepo catalog.ProductRepository,
	movementRepo stock.MovementRepository,
	alertRepo stock.AlertRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		productRepo:  productRepo,
		movementRepo: movementRepo,
		alertRepo:    alertRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Products returns the product repository.
func (s *NoOpTransactionScope) Products() catalog.ProductRepository {
	return s.productRepo
}

// Movements returns the movement ledger repository.
func (s *NoOpTransactionScope) Movements() stock.MovementRepository {
	return s.movementRepo
}

// Alerts returns the alert repository.
func (s *NoOpTransactionScope) Alerts() stock.AlertRepository {
	return s.alertRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
