// Package metrics declares the Prometheus collectors of seekdb.
// Collectors are package-level; nothing is exported until Register is called.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seekdb"

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestDuration,
		httpRequestsTotal,
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTextsTotal,
		EmbeddingErrorsTotal,
		EmbeddingCacheTotal,
		OperationsTotal,
		OperationDuration,
	}
}

// Register adds every collector to reg. Registering twice with the same
// registry is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return fmt.Errorf("register metrics: %w", err)
		}
	}
	return nil
}
