package seekdb

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testDim = 8

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	base := []Option{WithEmbedded(""), WithEmbeddingFunction(NewHashEmbeddingFunction(testDim))}
	c, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNew_DefaultsToEmbeddedMemory(t *testing.T) {
	c := newTestClient(t)
	if c.Mode() != "embedded" || c.Tenant() != "default_tenant" || c.Database() != "default_database" {
		t.Errorf("scope = %s/%s/%s", c.Mode(), c.Tenant(), c.Database())
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	info, err := c.ServerInfo(context.Background())
	if err != nil {
		t.Fatalf("ServerInfo: %v", err)
	}
	if info.Engine != "sqlite" || info.Version.Major() < 3 {
		t.Errorf("server info = %s %s", info.Engine, info.Version)
	}
}

func TestNew_InvalidScope(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"multi tenant without tenant", []Option{WithMultiTenant("postgres://localhost/x", "")}},
		{"bad database name", []Option{WithDatabase("no spaces allowed")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.opts...)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestCollections_Lifecycle(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	if _, err := c.CreateCollection(ctx, "b"); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if _, err := c.CreateCollection(ctx, "a", WithMetadata(map[string]any{"owner": "me"})); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if _, err := c.CreateCollection(ctx, "a"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := c.GetCollection(ctx, "a")
	if err != nil {
		t.Fatalf("GetCollection: %v", err)
	}
	if got.Name() != "a" || got.ID() == "" || got.Metadata()["owner"] != "me" {
		t.Errorf("collection = %s id=%q metadata=%v", got, got.ID(), got.Metadata())
	}

	cols, err := c.ListCollections(ctx)
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}
	if len(cols) != 2 || cols[0].Name() != "a" || cols[1].Name() != "b" {
		t.Errorf("collections = %v", cols)
	}
	if cols[0].EmbeddingFunction() == nil {
		t.Error("listed collection is not bound to the client function")
	}
	if n, err := c.CountCollections(ctx); err != nil || n != 2 {
		t.Errorf("CountCollections = %d, %v", n, err)
	}

	if err := c.DeleteCollection(ctx, "a"); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if ok, err := c.HasCollection(ctx, "a"); err != nil || ok {
		t.Errorf("HasCollection after delete = %v, %v", ok, err)
	}
	if _, err := c.GetCollection(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := c.DeleteCollection(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetOrCreateCollection(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	first, err := c.GetOrCreateCollection(ctx, "docs")
	if err != nil {
		t.Fatalf("GetOrCreateCollection: %v", err)
	}
	second, err := c.GetOrCreateCollection(ctx, "docs", WithConfiguration(HNSWConfiguration{Dimension: testDim}))
	if err != nil {
		t.Fatalf("GetOrCreateCollection: %v", err)
	}
	if first.ID() != second.ID() {
		t.Error("second call created another collection")
	}
}

func TestCreateCollection_FunctionBinding(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	probed, err := c.CreateCollection(ctx, "probed")
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if probed.Dimension() != testDim || probed.Distance() != Cosine || probed.EmbeddingFunction() == nil {
		t.Errorf("probed = %s", probed)
	}

	other, err := c.CreateCollection(ctx, "other", WithConfiguration(HNSWConfiguration{Dimension: 3, Distance: L2}))
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if other.EmbeddingFunction() != nil {
		t.Error("client function of another dimension was bound")
	}

	none, err := c.CreateCollection(ctx, "none", WithoutFunction())
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if none.EmbeddingFunction() != nil || none.Dimension() != 384 {
		t.Errorf("none = %s", none)
	}

	_, err = c.CreateCollection(ctx, "bad",
		WithConfiguration(HNSWConfiguration{Dimension: 3}),
		WithFunction(NewHashEmbeddingFunction(4)))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	_, err = c.GetCollection(ctx, "other", WithFunction(NewHashEmbeddingFunction(4)))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	reopened, err := c.GetCollection(ctx, "other", WithFunction(NewHashEmbeddingFunction(3)))
	if err != nil {
		t.Fatalf("GetCollection: %v", err)
	}
	if reopened.EmbeddingFunction() == nil {
		t.Error("explicit function was not bound")
	}
}

func TestUseDatabase(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	if err := c.Admin().CreateDatabase(ctx, "other"); err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	scoped, err := c.UseDatabase(ctx, "other")
	if err != nil {
		t.Fatalf("UseDatabase: %v", err)
	}
	if scoped.Database() != "other" || c.Database() != "default_database" {
		t.Errorf("databases = %s, %s", scoped.Database(), c.Database())
	}
	if _, err := scoped.CreateCollection(ctx, "docs"); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	if ok, _ := c.HasCollection(ctx, "docs"); ok {
		t.Error("collection leaked into the default database")
	}

	if _, err := c.UseDatabase(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.UseDatabase(ctx, "bad name"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestWithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, WithPrometheus(reg))
	// A second client reuses the registered collectors.
	c2 := newTestClient(t, WithPrometheus(reg))
	ctx := context.Background()

	_, _ = c.CreateCollection(ctx, "docs")
	_, _ = c2.CreateCollection(ctx, "docs")
	_, _ = c.GetCollection(ctx, "missing")

	ops := c.obs.metrics.operations
	if got := testutil.ToFloat64(ops.WithLabelValues("collection.create", "embedded", "ok")); got != 2 {
		t.Errorf("create ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(ops.WithLabelValues("collection.get", "embedded", "error")); got != 1 {
		t.Errorf("get error = %v, want 1", got)
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := newTestClient(t, WithLogger(l))

	_, _ = c.CreateCollection(context.Background(), "docs")
	_, _ = c.GetCollection(context.Background(), "missing")

	out := buf.String()
	if !strings.Contains(out, "op=collection.create") || !strings.Contains(out, "operation completed") {
		t.Errorf("missing debug entry in %q", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "op=collection.get") {
		t.Errorf("missing warn entry in %q", out)
	}
}
