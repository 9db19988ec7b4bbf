// Package health reports backend and embedding provider availability.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the backend works but the embedding provider does not.
	Degraded Status = "degraded"
	// Unhealthy indicates the backend is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names used as check keys.
const (
	ComponentBackend   = "backend"
	ComponentEmbedding = "embedding"
)

// Report aggregates health check results. Engine and Version are empty
// when the backend could not be reached.
type Report struct {
	Status  Status
	Checks  map[string]CheckResult
	Engine  string
	Version string
}

// Service coordinates health checks.
type Service struct {
	backend   Backend
	embedding EmbeddingChecker
}

// New creates a Service. embedding can be nil.
func New(backend Backend, embedding EmbeddingChecker) *Service {
	return &Service{backend: backend, embedding: embedding}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Status: Healthy, Checks: make(map[string]CheckResult, 2)}

	if err := s.backend.Ping(ctx); err != nil {
		r.Checks[ComponentBackend] = CheckError
		r.Status = Unhealthy
	} else {
		r.Checks[ComponentBackend] = CheckOK
		if engine, v, err := s.backend.DetectVersion(ctx); err == nil {
			r.Engine, r.Version = engine, v.String()
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			r.Checks[ComponentEmbedding] = CheckError
			if r.Status == Healthy {
				r.Status = Degraded
			}
		} else {
			r.Checks[ComponentEmbedding] = CheckOK
		}
	}
	return r
}
