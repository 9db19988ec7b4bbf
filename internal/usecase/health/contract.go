package health

import (
	"context"

	"github.com/kailas-cloud/seekdb/internal/domain/version"
)

// Backend is the storage side of the health check.
type Backend interface {
	Ping(ctx context.Context) error
	DetectVersion(ctx context.Context) (string, version.Version, error)
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
