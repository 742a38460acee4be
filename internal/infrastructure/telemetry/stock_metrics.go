package telemetry

import (
	"context"

	appstock "github.com/retailops/backend/internal/application/stock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "retailops.stock"

// StockMetrics records operational metrics for the stock engine.
// It reports through the global OpenTelemetry meter provider; with no
// provider configured the instruments are no-ops.
type StockMetrics struct {
	movementsTotal       *Counter
	conflictRetriesTotal *Counter
}

// NewStockMetrics creates stock metrics on the global meter provider
func NewStockMetrics() (*StockMetrics, error) {
	return NewStockMetricsWithMeter(otel.Meter(meterName))
}

// NewStockMetricsWithMeter creates stock metrics on a specific meter
func NewStockMetricsWithMeter(meter metric.Meter) (*StockMetrics, error) {
	movements, err := NewCounter(
		meter,
		"retailops_stock_movements_total",
		"Total number of committed stock movements",
		"{movements}",
	)
	if err != nil {
		return nil, err
	}

	retries, err := NewCounter(
		meter,
		"retailops_stock_conflict_retries_total",
		"Total number of optimistic-lock retries during stock mutations",
		"{retries}",
	)
	if err != nil {
		return nil, err
	}

	return &StockMetrics{
		movementsTotal:       movements,
		conflictRetriesTotal: retries,
	}, nil
}

// MovementRecorded counts a committed ledger entry by movement type
func (m *StockMetrics) MovementRecorded(ctx context.Context, movementType string) {
	m.movementsTotal.Inc(ctx, AttrMovementType.String(movementType))
}

// ConflictRetried counts a retry caused by a lost optimistic-lock race
func (m *StockMetrics) ConflictRetried(ctx context.Context) {
	m.conflictRetriesTotal.Inc(ctx)
}

// Ensure StockMetrics implements the application metrics contract
var _ appstock.MetricsRecorder = (*StockMetrics)(nil)
