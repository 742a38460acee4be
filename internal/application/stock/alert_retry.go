package stock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/retailops/backend/internal/domain/catalog"
	"github.com/retailops/backend/internal/domain/shared"
	"github.com/retailops/backend/internal/domain/stock"
	"go.uber.org/zap"
)

const (
	defaultRetryQueueSize = 256
	maxReconcileAttempts  = 5
	reconcileRetryDelay   = 200 * time.Millisecond
)

type alertRetryTask struct {
	tenantID  uuid.UUID
	productID uuid.UUID
	storeID   uuid.UUID
	attempts  int
}

// AlertRetryWorker re-runs alert reconciliation for movements whose
// inline reconciliation failed. The movement is the authoritative fact;
// an alert is a derived signal, so its write failure must never fail the
// mutation, but it must not be lost either. Failed scopes are queued
// here and replayed against a fresh product read.
type AlertRetryWorker struct {
	productRepo catalog.ProductRepository
	alertRepo   stock.AlertRepository
	reconciler  *AlertReconciler
	publisher   shared.EventPublisher
	logger      *zap.Logger

	maxAttempts int
	retryDelay  time.Duration

	tasks    chan alertRetryTask
	stopOnce sync.Once
	stopped  chan struct{}
	wg       sync.WaitGroup
}

// NewAlertRetryWorker creates a new AlertRetryWorker with the given queue size.
// A queueSize of zero falls back to the default.
func NewAlertRetryWorker(
	productRepo catalog.ProductRepository,
	alertRepo stock.AlertRepository,
	reconciler *AlertReconciler,
	logger *zap.Logger,
	queueSize int,
) *AlertRetryWorker {
	if queueSize <= 0 {
		queueSize = defaultRetryQueueSize
	}
	return &AlertRetryWorker{
		productRepo: productRepo,
		alertRepo:   alertRepo,
		reconciler:  reconciler,
		logger:      logger,
		maxAttempts: maxReconcileAttempts,
		retryDelay:  reconcileRetryDelay,
		tasks:       make(chan alertRetryTask, queueSize),
		stopped:     make(chan struct{}),
	}
}

// SetRetryPolicy overrides the reconcile attempt cap and base delay.
// Non-positive values keep the current setting.
func (w *AlertRetryWorker) SetRetryPolicy(maxAttempts int, delay time.Duration) {
	if maxAttempts > 0 {
		w.maxAttempts = maxAttempts
	}
	if delay > 0 {
		w.retryDelay = delay
	}
}

// SetEventPublisher sets the publisher for alert transition events
// produced by replayed reconciliations.
func (w *AlertRetryWorker) SetEventPublisher(publisher shared.EventPublisher) {
	w.publisher = publisher
}

// Start launches the worker goroutine
func (w *AlertRetryWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopped:
				return
			case task := <-w.tasks:
				w.process(ctx, task)
			}
		}
	}()
	w.logger.Info("alert retry worker started")
}

// Stop stops the worker and waits for the in-flight task to finish
func (w *AlertRetryWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopped)
	})
	w.wg.Wait()
	w.logger.Info("alert retry worker stopped")
}

// Enqueue schedules a reconciliation replay. Returns false when the
// queue is full; the caller has already logged the original failure.
func (w *AlertRetryWorker) Enqueue(tenantID, productID, storeID uuid.UUID) bool {
	return w.enqueue(alertRetryTask{tenantID: tenantID, productID: productID, storeID: storeID})
}

func (w *AlertRetryWorker) enqueue(task alertRetryTask) bool {
	select {
	case w.tasks <- task:
		return true
	default:
		w.logger.Error("alert retry queue full, dropping reconciliation task",
			zap.String("tenant_id", task.tenantID.String()),
			zap.String("product_id", task.productID.String()),
			zap.String("store_id", task.storeID.String()),
		)
		return false
	}
}

func (w *AlertRetryWorker) process(ctx context.Context, task alertRetryTask) {
	if task.attempts > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(task.attempts) * w.retryDelay):
		}
	}

	err := w.reconcileOnce(ctx, task)
	if err == nil {
		return
	}

	task.attempts++
	if task.attempts >= w.maxAttempts {
		w.logger.Error("alert reconciliation permanently failed",
			zap.String("tenant_id", task.tenantID.String()),
			zap.String("product_id", task.productID.String()),
			zap.String("store_id", task.storeID.String()),
			zap.Int("attempts", task.attempts),
			zap.Error(err),
		)
		return
	}

	w.logger.Warn("alert reconciliation retry failed, requeueing",
		zap.String("product_id", task.productID.String()),
		zap.Int("attempts", task.attempts),
		zap.Error(err),
	)
	w.enqueue(task)
}

func (w *AlertRetryWorker) reconcileOnce(ctx context.Context, task alertRetryTask) error {
	product, err := w.productRepo.FindByIDForTenant(ctx, task.tenantID, task.productID)
	if err != nil {
		return err
	}

	events, err := w.reconciler.Reconcile(ctx, w.alertRepo, product, task.storeID)
	if err != nil {
		return err
	}

	if w.publisher != nil && len(events) > 0 {
		if err := w.publisher.Publish(ctx, events...); err != nil {
			w.logger.Warn("failed to publish replayed alert events", zap.Error(err))
		}
	}
	return nil
}
