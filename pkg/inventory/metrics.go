package inventory

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Engine metrics, exposed by cmd/api on /metrics.
var (
	stockOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopstock_stock_operations_total",
			Help: "Stock-affecting engine operations by action and result.",
		},
		[]string{"action", "result"},
	)

	historyAppends = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopstock_history_entries_total",
			Help: "Audit trail entries appended.",
		},
	)

	reorderAlertsRaised = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopstock_reorder_alerts_total",
			Help: "Reorder alerts raised for items below their reorder point.",
		},
	)
)

func init() {
	prometheus.MustRegister(stockOperations, historyAppends, reorderAlertsRaised)
}

const (
	resultOK     = "ok"
	resultFailed = "failed"
)
