package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/db/sqlite"
	"github.com/kailas-cloud/seekdb/internal/domain"
)

type mockFunction struct {
	calls [][]string
	err   error
	short bool
}

func (m *mockFunction) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.calls = append(m.calls, texts)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	if m.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockFunction) Name() string { return "mock" }

type mockStore struct {
	data   map[string][]byte
	ttls   []time.Duration
	getErr error
	setErr error
}

func newMockStore() *mockStore { return &mockStore{data: map[string][]byte{}} }

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls = append(m.ttls, ttl)
	return nil
}

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
}

func TestEmbed_MissesBatchedOnce(t *testing.T) {
	inner := &mockFunction{}
	st := newMockStore()
	counter := newCounter()
	c := New(inner, st, time.Hour, counter, nil)
	ctx := context.Background()

	if _, err := c.Embed(ctx, []string{"a", "bb"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	got, err := c.Embed(ctx, []string{"bb", "ccc", "a"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if len(inner.calls) != 2 || len(inner.calls[1]) != 1 || inner.calls[1][0] != "ccc" {
		t.Errorf("inner calls = %v, want only the miss embedded", inner.calls)
	}
	if got[0][0] != 2 || got[1][0] != 3 || got[2][0] != 1 {
		t.Errorf("vectors out of order: %v", got)
	}
	if n := testutil.ToFloat64(counter.WithLabelValues("hit")); n != 2 {
		t.Errorf("hits = %v, want 2", n)
	}
	if n := testutil.ToFloat64(counter.WithLabelValues("miss")); n != 3 {
		t.Errorf("misses = %v, want 3", n)
	}
	if st.ttls[0] != time.Hour {
		t.Errorf("ttl = %v", st.ttls[0])
	}
}

func TestEmbed_StoreFailuresDegrade(t *testing.T) {
	inner := &mockFunction{}
	st := newMockStore()
	st.getErr = errors.New("conn reset")
	st.setErr = errors.New("conn reset")
	c := New(inner, st, 0, nil, nil)

	got, err := c.Embed(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 1 || len(inner.calls) != 1 {
		t.Errorf("got %v after %d calls", got, len(inner.calls))
	}
}

func TestEmbed_CorruptEntryIsAMiss(t *testing.T) {
	inner := &mockFunction{}
	st := newMockStore()
	c := New(inner, st, 0, nil, nil)
	st.data[c.cacheKey("x")] = []byte{1, 2, 3}

	got, err := c.Embed(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got[0][0] != 1 || len(inner.calls) != 1 {
		t.Errorf("got %v", got)
	}
}

func TestEmbed_InnerErrors(t *testing.T) {
	boom := errors.New("boom")
	c := New(&mockFunction{err: boom}, newMockStore(), 0, nil, nil)
	if _, err := c.Embed(context.Background(), []string{"x"}); !errors.Is(err, boom) {
		t.Errorf("expected inner error, got %v", err)
	}

	c = New(&mockFunction{short: true}, newMockStore(), 0, nil, nil)
	if _, err := c.Embed(context.Background(), []string{"x", "y"}); !errors.Is(err, domain.ErrEmbeddingFunctionContract) {
		t.Errorf("expected ErrEmbeddingFunctionContract, got %v", err)
	}
}

func TestCacheKey_ScopedByFunction(t *testing.T) {
	a := New(&mockFunction{}, newMockStore(), 0, nil, nil)
	b := New(domain.EmbeddingFunc(func(context.Context, []string) ([][]float32, error) { return nil, nil }),
		newMockStore(), 0, nil, nil)
	if a.cacheKey("x") == b.cacheKey("x") {
		t.Error("different functions share a cache key")
	}
	if a.Name() != "mock" {
		t.Errorf("name = %q", a.Name())
	}
}

func TestEmbed_OnSQLiteKV(t *testing.T) {
	ctx := context.Background()
	s, err := sqlite.Open(ctx, sqlite.Config{Path: sqlite.MemoryPath})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Close)

	inner := &mockFunction{}
	c := New(inner, s, time.Minute, nil, nil)
	for range 3 {
		got, err := c.Embed(ctx, []string{"hello"})
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		if got[0][0] != 5 {
			t.Errorf("vector = %v", got[0])
		}
	}
	if len(inner.calls) != 1 {
		t.Errorf("inner called %d times, want 1", len(inner.calls))
	}
}
