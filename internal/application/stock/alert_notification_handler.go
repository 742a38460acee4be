package stock

import (
	"context"
	"fmt"

	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/domain/stock"
	"go.uber.org/zap"
)

// AlertNotifier is the interface for delivering alert notifications.
// Implementations can support different channels (in-app, email, SMS).
type AlertNotifier interface {
	// NotifyRaised delivers a notification for a newly raised alert
	NotifyRaised(ctx context.Context, event *stock.AlertRaisedEvent) error
	// NotifyResolved delivers a notification for a resolved alert
	NotifyResolved(ctx context.Context, event *stock.AlertResolvedEvent) error
}

// AlertNotificationHandler forwards alert transition events to a notifier
type AlertNotificationHandler struct {
	logger   *zap.Logger
	notifier AlertNotifier
}

// NewAlertNotificationHandler creates a new handler for alert events
func NewAlertNotificationHandler(logger *zap.Logger) *AlertNotificationHandler {
	return &AlertNotificationHandler{
		logger: logger,
	}
}

// WithNotifier sets the notifier for delivering alerts
func (h *AlertNotificationHandler) WithNotifier(notifier AlertNotifier) *AlertNotificationHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *AlertNotificationHandler) EventTypes() []string {
	return []string{stock.EventTypeAlertRaised, stock.EventTypeAlertResolved}
}

// Handle processes alert raised/resolved events
func (h *AlertNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *stock.AlertRaisedEvent:
		h.logger.Warn("stock threshold breached",
			zap.String("tenant_id", e.TenantID().String()),
			zap.String("product_id", e.ProductID.String()),
			zap.String("store_id", e.StoreID.String()),
			zap.String("alert_type", string(e.AlertType)),
			zap.Int64("threshold", e.Threshold),
			zap.Int64("current_stock", e.CurrentStock),
		)
		if h.notifier != nil {
			return h.notifier.NotifyRaised(ctx, e)
		}
		return nil

	case *stock.AlertResolvedEvent:
		h.logger.Info("stock alert resolved",
			zap.String("tenant_id", e.TenantID().String()),
			zap.String("product_id", e.ProductID.String()),
			zap.String("store_id", e.StoreID.String()),
			zap.String("alert_type", string(e.AlertType)),
		)
		if h.notifier != nil {
			return h.notifier.NotifyResolved(ctx, e)
		}
		return nil

	default:
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
}

// LoggingAlertNotifier is an AlertNotifier that only logs. It is the
// default channel until a real notification backend is wired up.
type LoggingAlertNotifier struct {
	logger *zap.Logger
}

// NewLoggingAlertNotifier creates a logging-only notifier
func NewLoggingAlertNotifier(logger *zap.Logger) *LoggingAlertNotifier {
	return &LoggingAlertNotifier{logger: logger}
}

// NotifyRaised logs the raised alert
func (n *LoggingAlertNotifier) NotifyRaised(_ context.Context, event *stock.AlertRaisedEvent) error {
	n.logger.Warn("ALERT",
		zap.String("alert_type", string(event.AlertType)),
		zap.String("product_id", event.ProductID.String()),
		zap.String("store_id", event.StoreID.String()),
		zap.Int64("threshold", event.Threshold),
		zap.Int64("current_stock", event.CurrentStock),
	)
	return nil
}

// NotifyResolved logs the resolved alert
func (n *LoggingAlertNotifier) NotifyResolved(_ context.Context, event *stock.AlertResolvedEvent) error {
	n.logger.Info("ALERT CLEARED",
		zap.String("alert_type", string(event.AlertType)),
		zap.String("product_id", event.ProductID.String()),
		zap.String("store_id", event.StoreID.String()),
	)
	return nil
}

// Ensure interfaces are implemented
var _ shared.EventHandler = (*AlertNotificationHandler)(nil)
var _ AlertNotifier = (*LoggingAlertNotifier)(nil)
