package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/domain/stock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockAlertRepository implements stock.AlertRepository using GORM.
// A partial unique index over open statuses guarantees at most one open
// alert per (tenant, product, store, type) scope; CreateIfAbsent leans on
// it to stay race-free under concurrent evaluators.
type GormStockAlertRepository struct {
	db *gorm.DB
}

// NewGormStockAlertRepository creates a new GormStockAlertRepository
func NewGormStockAlertRepository(db *gorm.DB) *GormStockAlertRepository {
	return &GormStockAlertRepository{db: db}
}

// CreateIfAbsent inserts the alert unless an open alert already occupies
// the same scope. It returns the alert that ended up representing the
// scope: the freshly inserted one, or the existing open one when the
// insert was a no-op.
func (r *GormStockAlertRepository) CreateIfAbsent(ctx context.Context, alert *stock.StockAlert) (*stock.StockAlert, error) {
	// Conflict target matches the partial unique index over open statuses.
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"},
				{Name: "product_id"},
				{Name: "store_id"},
				{Name: "type"},
			},
			TargetWhere: clause.Where{Exprs: []clause.Expression{
				gorm.Expr("status IN ('active', 'acknowledged')"),
			}},
			DoNothing: true,
		}).
		Create(alert)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		return alert, nil
	}

	existing, err := r.FindOpen(ctx, alert.TenantID, alert.ProductID, alert.StoreID, alert.Type)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// The conflicting alert was closed between our insert and
			// re-read. Treat it as a lost race; the next evaluation
			// converges.
			return nil, shared.ErrConcurrencyConflict
		}
		return nil, err
	}
	return existing, nil
}

// Save persists changes to an existing alert
func (r *GormStockAlertRepository) Save(ctx context.Context, alert *stock.StockAlert) error {
	return r.db.WithContext(ctx).Save(alert).Error
}

// FindByIDForTenant finds an alert by ID scoped to a tenant
func (r *GormStockAlertRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*stock.StockAlert, error) {
	var alert stock.StockAlert
	if err := r.db.WithContext(ctx).
		First(&alert, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &alert, nil
}

// FindOpen finds the open (active or acknowledged) alert for a scope
func (r *GormStockAlertRepository) FindOpen(ctx context.Context, tenantID, productID, storeID uuid.UUID, alertType stock.AlertType) (*stock.StockAlert, error) {
	var alert stock.StockAlert
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND store_id = ? AND type = ? AND status IN ?",
			tenantID, productID, storeID, alertType,
			[]stock.AlertStatus{stock.AlertStatusActive, stock.AlertStatusAcknowledged}).
		First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &alert, nil
}

// FindAllForTenant finds alerts for a tenant with filtering, newest first
func (r *GormStockAlertRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]stock.StockAlert, error) {
	var alerts []stock.StockAlert
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&stock.StockAlert{}).Where("tenant_id = ?", tenantID),
		filter,
	)
	if err := query.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// CountForTenant counts alerts for a tenant matching the filter
func (r *GormStockAlertRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&stock.StockAlert{}).Where("tenant_id = ?", tenantID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options including pagination and ordering
func (r *GormStockAlertRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, AlertSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter conditions only
func (r *GormStockAlertRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "product_id":
			query = query.Where("product_id = ?", value)
		case "store_id":
			query = query.Where("store_id = ?", value)
		case "type":
			query = query.Where("type = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		}
	}
	return query
}

// Ensure GormStockAlertRepository implements stock.AlertRepository
var _ stock.AlertRepository = (*GormStockAlertRepository)(nil)
