package stock

// AlertDecision is the evaluator's verdict for one alert type: the type
// is breached at the given stock level, with the boundary that tripped it.
type AlertDecision struct {
	Type         AlertType
	Threshold    int64
	CurrentStock int64
}

// alertRule pairs an alert type with its breach predicate and the
// threshold to snapshot when the breach first occurs. Keeping the three
// types in one table keeps evaluation exhaustive: adding a type means
// adding a row, not hunting for scattered conditionals.
type alertRule struct {
	alertType AlertType
	breached  func(stock int64, minStock, maxStock *int64) bool
	threshold func(minStock, maxStock *int64) int64
}

var alertRules = []alertRule{
	{
		alertType: AlertTypeOutOfStock,
		breached: func(stock int64, _, _ *int64) bool {
			return stock == 0
		},
		threshold: func(_, _ *int64) int64 { return 0 },
	},
	{
		// Out-of-stock supersedes low-stock: at exactly zero the
		// low_stock predicate is false even when minStock is set.
		alertType: AlertTypeLowStock,
		breached: func(stock int64, minStock, _ *int64) bool {
			return minStock != nil && stock > 0 && stock <= *minStock
		},
		threshold: func(minStock, _ *int64) int64 { return *minStock },
	},
	{
		alertType: AlertTypeOverstock,
		breached: func(stock int64, _, maxStock *int64) bool {
			return maxStock != nil && stock > *maxStock
		},
		threshold: func(_, maxStock *int64) int64 { return *maxStock },
	},
}

// Evaluate is the pure decision function of the alerting engine: given
// the current stock and the configured thresholds, it returns the set of
// alert types that should be active. Types absent from the result should
// have their active alerts resolved. The rules are mutually exclusive
// for low_stock/out_of_stock by construction.
func Evaluate(stock int64, minStock, maxStock *int64) []AlertDecision {
	var decisions []AlertDecision
	for _, rule := range alertRules {
		if rule.breached(stock, minStock, maxStock) {
			decisions = append(decisions, AlertDecision{
				Type:         rule.alertType,
				Threshold:    rule.threshold(minStock, maxStock),
				CurrentStock: stock,
			})
		}
	}
	return decisions
}

// DecisionByType indexes evaluator output for reconciliation
func DecisionByType(decisions []AlertDecision) map[AlertType]AlertDecision {
	m := make(map[AlertType]AlertDecision, len(decisions))
	for _, d := range decisions {
		m[d.Type] = d
	}
	return m
}
