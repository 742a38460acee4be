package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/catalog"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/domain/stock"
	"go.uber.org/zap"
)

// AlertReconciler compares the evaluator's desired alert set against the
// alert store for one (product, store) and applies the difference:
// create on a fresh breach, refresh the snapshot on an ongoing one,
// resolve when the condition clears.
//
// Acknowledged alerts are never returned to active. While one is open,
// an ongoing breach only refreshes its stock snapshot; a new active
// record appears only after a prior resolution.
type AlertReconciler struct {
	logger *zap.Logger
}

// NewAlertReconciler creates a new AlertReconciler
func NewAlertReconciler(logger *zap.Logger) *AlertReconciler {
	return &AlertReconciler{logger: logger}
}

// Reconcile runs one reconciliation pass and returns the domain events
// describing alert transitions. The caller decides when to publish them.
func (r *AlertReconciler) Reconcile(
	ctx context.Context,
	alertRepo stock.AlertRepository,
	product *catalog.Product,
	storeID uuid.UUID,
) ([]shared.DomainEvent, error) {
	decisions := stock.DecisionByType(stock.Evaluate(product.Stock, product.MinStock, product.MaxStock))

	var events []shared.DomainEvent
	var failures []error

	for _, alertType := range stock.AllAlertTypes {
		decision, breached := decisions[alertType]

		existing, err := alertRepo.FindOpen(ctx, product.TenantID, product.ID, storeID, alertType)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			failures = append(failures, fmt.Errorf("find open %s alert: %w", alertType, err))
			continue
		}
		hasOpen := err == nil

		switch {
		case breached && !hasOpen:
			alert, err := stock.NewStockAlert(product.TenantID, product.ID, storeID, alertType,
				decision.Threshold, decision.CurrentStock)
			if err != nil {
				failures = append(failures, err)
				continue
			}
			created, err := alertRepo.CreateIfAbsent(ctx, alert)
			if err != nil {
				failures = append(failures, fmt.Errorf("create %s alert: %w", alertType, err))
				continue
			}
			if created.ID == alert.ID {
				// Fresh breach. A concurrent writer may have created the
				// record first, in which case it already owns the event.
				events = append(events, stock.NewAlertRaisedEvent(created))
			}

		case breached && hasOpen:
			existing.UpdateCurrentStock(decision.CurrentStock)
			if err := alertRepo.Save(ctx, existing); err != nil {
				failures = append(failures, fmt.Errorf("refresh %s alert: %w", alertType, err))
			}

		case !breached && hasOpen:
			if err := existing.Resolve(nil); err != nil {
				failures = append(failures, err)
				continue
			}
			if err := alertRepo.Save(ctx, existing); err != nil {
				failures = append(failures, fmt.Errorf("resolve %s alert: %w", alertType, err))
				continue
			}
			events = append(events, stock.NewAlertResolvedEvent(existing))
		}
	}

	if len(failures) > 0 {
		r.logger.Warn("alert reconciliation incomplete",
			zap.String("tenant_id", product.TenantID.String()),
			zap.String("product_id", product.ID.String()),
			zap.String("store_id", storeID.String()),
			zap.Int("failed_steps", len(failures)),
			zap.Error(errors.Join(failures...)),
		)
		return events, errors.Join(failures...)
	}

	return events, nil
}
