package health

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/seekdb/internal/domain/version"
)

// --- Mocks ---

type mockBackend struct {
	err        error
	versionErr error
}

func (m *mockBackend) Ping(_ context.Context) error { return m.err }

func (m *mockBackend) DetectVersion(_ context.Context) (string, version.Version, error) {
	if m.versionErr != nil {
		return "", version.Version{}, m.versionErr
	}
	return "sqlite", version.MustParse("3.46.1"), nil
}

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck(t *testing.T) {
	down := errors.New("down")
	tests := []struct {
		name      string
		backend   *mockBackend
		embedding EmbeddingChecker
		status    Status
		checks    map[string]CheckResult
	}{
		{
			name:      "all healthy",
			backend:   &mockBackend{},
			embedding: &mockEmbeddingChecker{},
			status:    Healthy,
			checks:    map[string]CheckResult{ComponentBackend: CheckOK, ComponentEmbedding: CheckOK},
		},
		{
			name:    "no embedding checker",
			backend: &mockBackend{},
			status:  Healthy,
			checks:  map[string]CheckResult{ComponentBackend: CheckOK},
		},
		{
			name:      "embedding down",
			backend:   &mockBackend{},
			embedding: &mockEmbeddingChecker{err: down},
			status:    Degraded,
			checks:    map[string]CheckResult{ComponentBackend: CheckOK, ComponentEmbedding: CheckError},
		},
		{
			name:      "backend down",
			backend:   &mockBackend{err: down},
			embedding: &mockEmbeddingChecker{},
			status:    Unhealthy,
			checks:    map[string]CheckResult{ComponentBackend: CheckError, ComponentEmbedding: CheckOK},
		},
		{
			name:      "both down",
			backend:   &mockBackend{err: down},
			embedding: &mockEmbeddingChecker{err: down},
			status:    Unhealthy,
			checks:    map[string]CheckResult{ComponentBackend: CheckError, ComponentEmbedding: CheckError},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.backend, tt.embedding).Check(context.Background())
			if r.Status != tt.status {
				t.Errorf("status = %q, want %q", r.Status, tt.status)
			}
			if len(r.Checks) != len(tt.checks) {
				t.Errorf("checks = %v, want %v", r.Checks, tt.checks)
			}
			for k, v := range tt.checks {
				if r.Checks[k] != v {
					t.Errorf("check %s = %q, want %q", k, r.Checks[k], v)
				}
			}
		})
	}
}

func TestCheck_ReportsVersion(t *testing.T) {
	r := New(&mockBackend{}, nil).Check(context.Background())
	if r.Engine != "sqlite" || r.Version != "3.46.1.0" {
		t.Errorf("engine/version = %q %q", r.Engine, r.Version)
	}

	r = New(&mockBackend{versionErr: errors.New("no info")}, nil).Check(context.Background())
	if r.Status != Healthy || r.Engine != "" {
		t.Errorf("version failure must not affect status: %+v", r)
	}
}
