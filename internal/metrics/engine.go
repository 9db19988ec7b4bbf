package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collection engine metrics.
var (
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total collection operations",
		},
		[]string{"operation", "mode", "status"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Collection operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation", "mode"},
	)
)

// ObserveOperation records one finished operation.
func ObserveOperation(operation, mode string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	OperationsTotal.WithLabelValues(operation, mode, status).Inc()
	OperationDuration.WithLabelValues(operation, mode).Observe(time.Since(start).Seconds())
}
