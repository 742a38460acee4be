package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/catalog"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRetries bounds the internal retry loop on optimistic
	// lock conflicts before the conflict is surfaced to the caller.
	DefaultMaxRetries = 3

	retryBackoff = 25 * time.Millisecond
)

// ValuationCache caches the valuation read model per tenant
type ValuationCache interface {
	Get(ctx context.Context, tenantID uuid.UUID, storeID *uuid.UUID) (*ValuationResponse, bool)
	Set(ctx context.Context, tenantID uuid.UUID, storeID *uuid.UUID, valuation *ValuationResponse)
	Invalidate(ctx context.Context, tenantID uuid.UUID)
}

// MetricsRecorder records operational metrics for stock mutations
type MetricsRecorder interface {
	MovementRecorded(ctx context.Context, movementType string)
	ConflictRetried(ctx context.Context)
}

// StockService orchestrates stock mutations: it validates preconditions,
// applies the quantity change to the product, appends the matching ledger
// entry in the same transaction, and reconciles threshold alerts after
// the commit. All collaborators are injected; nothing is looked up from
// ambient state.
type StockService struct {
	txScope        TransactionScope
	productRepo    catalog.ProductRepository
	movementRepo   stock.MovementRepository
	alertRepo      stock.AlertRepository
	reconciler     *AlertReconciler
	logger         *zap.Logger
	maxRetries     int
	eventPublisher shared.EventPublisher
	retryWorker    *AlertRetryWorker
	valuationCache ValuationCache
	metrics        MetricsRecorder
}

// NewStockService creates a new StockService
func NewStockService(
	txScope TransactionScope,
	productRepo catalog.ProductRepository,
	movementRepo stock.MovementRepository,
	alertRepo stock.AlertRepository,
	logger *zap.Logger,
) *StockService {
	return &StockService{
		txScope:      txScope,
		productRepo:  productRepo,
		movementRepo: movementRepo,
		alertRepo:    alertRepo,
		reconciler:   NewAlertReconciler(logger),
		logger:       logger,
		maxRetries:   DefaultMaxRetries,
	}
}

// SetEventPublisher sets the publisher for domain events
func (s *StockService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetAlertRetryWorker sets the worker that replays failed alert reconciliations
func (s *StockService) SetAlertRetryWorker(worker *AlertRetryWorker) {
	s.retryWorker = worker
}

// SetValuationCache sets the valuation cache
func (s *StockService) SetValuationCache(cache ValuationCache) {
	s.valuationCache = cache
}

// SetMetricsRecorder sets the metrics recorder
func (s *StockService) SetMetricsRecorder(metrics MetricsRecorder) {
	s.metrics = metrics
}

// SetMaxRetries overrides the bounded retry count for lock conflicts
func (s *StockService) SetMaxRetries(n int) {
	if n >= 0 {
		s.maxRetries = n
	}
}

// movementCommand is the internal shape shared by Adjust and RecordMovement
type movementCommand struct {
	productID     uuid.UUID
	storeID       uuid.UUID
	movementType  stock.MovementType
	quantity      int64
	reason        string
	notes         string
	reference     *uuid.UUID
	referenceType string
}

// Adjust applies a signed quantity change to a product and records it in
// the ledger. Returns the updated product snapshot.
func (s *StockService) Adjust(ctx context.Context, tenantID, userID uuid.UUID, req AdjustStockRequest) (*ProductStockResponse, error) {
	product, movement, err := s.commitMovement(ctx, tenantID, userID, movementCommand{
		productID:    req.ProductID,
		storeID:      req.StoreID,
		movementType: stock.MovementType(req.Type),
		quantity:     req.Delta,
		reason:       req.Reason,
		notes:        req.Notes,
	})
	if err != nil {
		return nil, err
	}

	s.finishMovement(ctx, product, movement)

	return ToProductStockResponse(product), nil
}

// RecordMovement is the low-level primitive: it commits one movement of
// an arbitrary valid type. Adjust is sugar over this; external callers
// with their own semantics (receiving, sales) use it directly.
func (s *StockService) RecordMovement(ctx context.Context, tenantID, userID uuid.UUID, req RecordMovementRequest) (*MovementResponse, error) {
	product, movement, err := s.commitMovement(ctx, tenantID, userID, movementCommand{
		productID:     req.ProductID,
		storeID:       req.StoreID,
		movementType:  stock.MovementType(req.Type),
		quantity:      req.Quantity,
		reason:        req.Reason,
		notes:         req.Notes,
		reference:     req.Reference,
		referenceType: req.ReferenceType,
	})
	if err != nil {
		return nil, err
	}

	s.finishMovement(ctx, product, movement)

	return ToMovementResponse(movement), nil
}

// Transfer moves quantity between two stores. Stock is tenant-global, so
// the operation is net-zero on the product total: a transfer_out and a
// transfer_in are appended against the same running total, chained
// sequentially, inside one transaction.
func (s *StockService) Transfer(ctx context.Context, tenantID, userID uuid.UUID, req TransferStockRequest) (*TransferResponse, error) {
	if req.FromStoreID == req.ToStoreID {
		return nil, shared.NewDomainError("INVALID_OPERATION",
			"Transfer source and destination stores must differ")
	}
	if req.Quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_OPERATION",
			"Transfer quantity must be positive")
	}

	var (
		product *catalog.Product
		out, in *stock.StockMovement
	)

	err := s.withRetry(ctx, func() error {
		product, out, in = nil, nil, nil
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			p, err := s.findProduct(ctx, repos, tenantID, req.ProductID)
			if err != nil {
				return err
			}
			if !p.TrackInventory {
				return shared.NewDomainError("INVALID_OPERATION",
					fmt.Sprintf("Inventory tracking is disabled for product %s", p.ID))
			}
			if !p.HasSufficientStock(-req.Quantity) {
				return shared.NewDomainError("INSUFFICIENT_STOCK",
					fmt.Sprintf("Insufficient stock for transfer of product %s: have %d, requested %d",
						p.ID, p.Stock, req.Quantity))
			}

			outM, err := stock.NewStockMovement(tenantID, p.ID, req.FromStoreID,
				stock.MovementTypeTransferOut, -req.Quantity, p.Stock, userID)
			if err != nil {
				return err
			}
			inM, err := stock.NewStockMovement(tenantID, p.ID, req.ToStoreID,
				stock.MovementTypeTransferIn, req.Quantity, outM.QuantityAfter, userID)
			if err != nil {
				return err
			}
			for _, m := range []*stock.StockMovement{outM, inM} {
				m.WithReferenceType("Transfer")
				if req.Reason != "" {
					m.WithReason(req.Reason)
				}
				if req.Notes != "" {
					m.WithNotes(req.Notes)
				}
			}

			// Version bump with unchanged quantity: serializes this
			// transfer against concurrent adjustments on the product.
			if err := p.TouchStock(); err != nil {
				return err
			}
			if err := repos.Products().SaveStockWithLock(ctx, p); err != nil {
				return err
			}
			if err := repos.Movements().Create(ctx, outM); err != nil {
				return shared.NewDomainError("TRANSFER_FAILED",
					fmt.Sprintf("Transfer of product %s could not be committed: %v", p.ID, err))
			}
			if err := repos.Movements().Create(ctx, inM); err != nil {
				return shared.NewDomainError("TRANSFER_FAILED",
					fmt.Sprintf("Transfer of product %s could not be committed: %v", p.ID, err))
			}

			product, out, in = p, outM, inM
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, product.GetDomainEvents()...)
	product.ClearDomainEvents()
	s.publishEvents(ctx,
		stock.NewMovementRecordedEvent(out),
		stock.NewMovementRecordedEvent(in),
		stock.NewStockTransferredEvent(tenantID, product.ID, req.FromStoreID, req.ToStoreID, req.Quantity),
	)
	if s.metrics != nil {
		s.metrics.MovementRecorded(ctx, string(out.Type))
		s.metrics.MovementRecorded(ctx, string(in.Type))
	}

	// Both evaluations see the same global figure; the stores differ.
	s.reconcileAlerts(ctx, product, req.FromStoreID)
	s.reconcileAlerts(ctx, product, req.ToStoreID)
	s.invalidateValuation(ctx, tenantID)

	return &TransferResponse{
		Product:     ToProductStockResponse(product),
		TransferOut: ToMovementResponse(out),
		TransferIn:  ToMovementResponse(in),
	}, nil
}

// History returns the movement ledger, filtered and paginated, newest first.
func (s *StockService) History(ctx context.Context, tenantID uuid.UUID, filter MovementHistoryFilter) (*shared.Paginated[MovementResponse], error) {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.ProductID != nil {
		f.Filters["product_id"] = *filter.ProductID
	}
	if filter.StoreID != nil {
		f.Filters["store_id"] = *filter.StoreID
	}
	if filter.Type != nil {
		if !stock.MovementType(*filter.Type).IsValid() {
			return nil, shared.NewDomainError("INVALID_INPUT",
				fmt.Sprintf("Invalid movement type filter: %s", *filter.Type))
		}
		f.Filters["type"] = *filter.Type
	}
	if filter.DateFrom != nil {
		f.Filters["date_from"] = *filter.DateFrom
	}
	if filter.DateTo != nil {
		f.Filters["date_to"] = *filter.DateTo
	}

	movements, err := s.movementRepo.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, err
	}
	total, err := s.movementRepo.CountForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, err
	}

	items := make([]MovementResponse, len(movements))
	for i := range movements {
		items[i] = *ToMovementResponse(&movements[i])
	}

	result := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &result, nil
}

// Valuation computes the current stock value: sum of stock times unit
// cost over active, tracked products that have a cost configured. Stock
// is tenant-global, so the optional store only scopes the cache key.
func (s *StockService) Valuation(ctx context.Context, tenantID uuid.UUID, storeID *uuid.UUID) (*ValuationResponse, error) {
	if s.valuationCache != nil {
		if cached, ok := s.valuationCache.Get(ctx, tenantID, storeID); ok {
			return cached, nil
		}
	}

	products, err := s.productRepo.FindTrackedForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	perProduct := make([]ProductValuation, 0, len(products))
	for i := range products {
		p := &products[i]
		if !p.HasCost() {
			continue
		}
		value := p.Cost.Mul(decimal.NewFromInt(p.Stock))
		total = total.Add(value)
		perProduct = append(perProduct, ProductValuation{
			ProductID: p.ID,
			Code:      p.Code,
			Name:      p.Name,
			Stock:     p.Stock,
			Cost:      p.Cost.StringFixed(2),
			Value:     value.StringFixed(2),
		})
	}

	resp := &ValuationResponse{
		TotalValue: total.StringFixed(2),
		TotalItems: len(perProduct),
		PerProduct: perProduct,
		ComputedAt: time.Now(),
	}

	if s.valuationCache != nil {
		s.valuationCache.Set(ctx, tenantID, storeID, resp)
	}
	return resp, nil
}

// ActiveAlerts lists alerts for the tenant. Without an explicit status
// filter, only active alerts are returned.
func (s *StockService) ActiveAlerts(ctx context.Context, tenantID uuid.UUID, filter AlertListFilter) (*shared.Paginated[AlertResponse], error) {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.ProductID != nil {
		f.Filters["product_id"] = *filter.ProductID
	}
	if filter.StoreID != nil {
		f.Filters["store_id"] = *filter.StoreID
	}
	if filter.Type != nil {
		if !stock.AlertType(*filter.Type).IsValid() {
			return nil, shared.NewDomainError("INVALID_INPUT",
				fmt.Sprintf("Invalid alert type filter: %s", *filter.Type))
		}
		f.Filters["type"] = *filter.Type
	}
	if filter.Status != nil {
		f.Filters["status"] = *filter.Status
	} else {
		f.Filters["status"] = string(stock.AlertStatusActive)
	}

	alerts, err := s.alertRepo.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, err
	}
	total, err := s.alertRepo.CountForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, err
	}

	items := make([]AlertResponse, len(alerts))
	for i := range alerts {
		items[i] = *ToAlertResponse(&alerts[i])
	}

	result := shared.NewPaginated(items, total, f.Page, f.PageSize)
	return &result, nil
}

// Acknowledge marks an active alert as seen by the acting user
func (s *StockService) Acknowledge(ctx context.Context, tenantID, alertID, userID uuid.UUID) (*AlertResponse, error) {
	alert, err := s.alertRepo.FindByIDForTenant(ctx, tenantID, alertID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND",
				fmt.Sprintf("Alert %s not found", alertID))
		}
		return nil, err
	}

	if err := alert.Acknowledge(userID); err != nil {
		return nil, err
	}
	if err := s.alertRepo.Save(ctx, alert); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, stock.NewAlertAcknowledgedEvent(alert))

	return ToAlertResponse(alert), nil
}

// ResolveAlert closes an open alert on behalf of the acting user
func (s *StockService) ResolveAlert(ctx context.Context, tenantID, alertID, userID uuid.UUID) (*AlertResponse, error) {
	alert, err := s.alertRepo.FindByIDForTenant(ctx, tenantID, alertID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND",
				fmt.Sprintf("Alert %s not found", alertID))
		}
		return nil, err
	}

	if err := alert.Resolve(&userID); err != nil {
		return nil, err
	}
	if err := s.alertRepo.Save(ctx, alert); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, stock.NewAlertResolvedEvent(alert))

	return ToAlertResponse(alert), nil
}

// commitMovement runs the atomic read-mutate-append sequence for a
// single movement, retrying on optimistic lock conflicts.
func (s *StockService) commitMovement(ctx context.Context, tenantID, userID uuid.UUID, cmd movementCommand) (*catalog.Product, *stock.StockMovement, error) {
	if !cmd.movementType.IsValid() {
		return nil, nil, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("Invalid movement type: %s", cmd.movementType))
	}

	var (
		product  *catalog.Product
		movement *stock.StockMovement
	)

	err := s.withRetry(ctx, func() error {
		product, movement = nil, nil
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			p, err := s.findProduct(ctx, repos, tenantID, cmd.productID)
			if err != nil {
				return err
			}

			before, err := p.ApplyStockDelta(cmd.quantity)
			if err != nil {
				return err
			}

			m, err := stock.NewStockMovement(tenantID, p.ID, cmd.storeID,
				cmd.movementType, cmd.quantity, before, userID)
			if err != nil {
				return err
			}
			if cmd.reason != "" {
				m.WithReason(cmd.reason)
			}
			if cmd.notes != "" {
				m.WithNotes(cmd.notes)
			}
			if cmd.reference != nil {
				m.WithReference(cmd.referenceType, *cmd.reference)
			} else if cmd.referenceType != "" {
				m.WithReferenceType(cmd.referenceType)
			}

			if err := repos.Products().SaveStockWithLock(ctx, p); err != nil {
				return err
			}
			if err := repos.Movements().Create(ctx, m); err != nil {
				return err
			}

			product, movement = p, m
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return product, movement, nil
}

// finishMovement publishes events and reconciles alerts after a commit
func (s *StockService) finishMovement(ctx context.Context, product *catalog.Product, movement *stock.StockMovement) {
	s.publishEvents(ctx, product.GetDomainEvents()...)
	product.ClearDomainEvents()
	s.publishEvents(ctx, stock.NewMovementRecordedEvent(movement))

	if s.metrics != nil {
		s.metrics.MovementRecorded(ctx, string(movement.Type))
	}

	s.reconcileAlerts(ctx, product, movement.StoreID)
	s.invalidateValuation(ctx, product.TenantID)
}

func (s *StockService) findProduct(ctx context.Context, repos TransactionalRepositories, tenantID, productID uuid.UUID) (*catalog.Product, error) {
	p, err := repos.Products().FindByIDForTenant(ctx, tenantID, productID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND",
				fmt.Sprintf("Product %s not found", productID))
		}
		return nil, err
	}
	return p, nil
}

// withRetry retries op on optimistic lock conflicts up to maxRetries
// times. Every other error is surfaced immediately.
func (s *StockService) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			if s.metrics != nil {
				s.metrics.ConflictRetried(ctx)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}
		err = op()
		if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
	}
	s.logger.Warn("stock mutation exhausted conflict retries",
		zap.Int("attempts", s.maxRetries+1),
	)
	return err
}

// reconcileAlerts runs alert reconciliation after a committed movement.
// The movement is the authoritative fact: a reconciliation failure is
// logged and replayed asynchronously, never surfaced to the caller.
func (s *StockService) reconcileAlerts(ctx context.Context, product *catalog.Product, storeID uuid.UUID) {
	events, err := s.reconciler.Reconcile(ctx, s.alertRepo, product, storeID)
	if err != nil {
		s.logger.Error("alert reconciliation failed after committed movement",
			zap.String("tenant_id", product.TenantID.String()),
			zap.String("product_id", product.ID.String()),
			zap.String("store_id", storeID.String()),
			zap.Error(err),
		)
		if s.retryWorker != nil {
			s.retryWorker.Enqueue(product.TenantID, product.ID, storeID)
		}
	}
	s.publishEvents(ctx, events...)
}

func (s *StockService) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err))
	}
}

func (s *StockService) invalidateValuation(ctx context.Context, tenantID uuid.UUID) {
	if s.valuationCache != nil {
		s.valuationCache.Invalidate(ctx, tenantID)
	}
}
