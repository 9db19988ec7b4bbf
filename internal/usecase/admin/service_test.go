package admin

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/db/sqlite"
	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/domain/mode"
)

// --- Mocks ---

type mockCatalog struct {
	dbs       map[string]bool
	createErr error
	creates   int
}

func (m *mockCatalog) CreateDatabase(_ context.Context, _, name string) error {
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	if m.dbs[name] {
		return db.ErrKeyExists
	}
	m.dbs[name] = true
	return nil
}

func (m *mockCatalog) GetDatabase(_ context.Context, tenant, name string) (db.DatabaseInfo, error) {
	if !m.dbs[name] {
		return db.DatabaseInfo{}, db.ErrKeyNotFound
	}
	return db.DatabaseInfo{Tenant: tenant, Name: name}, nil
}

func (m *mockCatalog) DeleteDatabase(_ context.Context, _, name string) error {
	if !m.dbs[name] {
		return db.ErrKeyNotFound
	}
	delete(m.dbs, name)
	return nil
}

func (m *mockCatalog) ListDatabases(_ context.Context, tenant string, _, _ int) ([]db.DatabaseInfo, error) {
	out := make([]db.DatabaseInfo, 0, len(m.dbs))
	for name := range m.dbs {
		out = append(out, db.DatabaseInfo{Tenant: tenant, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- Tests ---

func TestDefaultDatabaseIsImplicit(t *testing.T) {
	cat := &mockCatalog{dbs: map[string]bool{}}
	svc := New(cat)

	info, err := svc.GetDatabase(context.Background(), mode.DefaultTenant, mode.DefaultDatabase)
	if err != nil {
		t.Fatalf("GetDatabase: %v", err)
	}
	if info.Name != mode.DefaultDatabase {
		t.Errorf("name = %q", info.Name)
	}
	if _, err := svc.GetDatabase(context.Background(), mode.DefaultTenant, "other"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateDatabase(t *testing.T) {
	cat := &mockCatalog{dbs: map[string]bool{"taken": true}}
	svc := New(cat)
	ctx := context.Background()

	if err := svc.CreateDatabase(ctx, "t", "fresh"); err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	if err := svc.CreateDatabase(ctx, "t", "taken"); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
	if err := svc.CreateDatabase(ctx, "t", "no spaces"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	boom := errors.New("boom")
	cat.createErr = boom
	if err := svc.CreateDatabase(ctx, "t", "other"); !errors.Is(err, boom) {
		t.Errorf("expected backend error, got %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	cat := &mockCatalog{dbs: map[string]bool{"b": true}}
	svc := New(cat)
	ctx := context.Background()

	got, err := svc.ListDatabases(ctx, "t", 0, 0)
	if err != nil {
		t.Fatalf("ListDatabases: %v", err)
	}
	if len(got) != 2 || got[0].Name != "b" || got[1].Name != mode.DefaultDatabase {
		t.Errorf("databases = %+v", got)
	}
	if _, err := svc.ListDatabases(ctx, "t", -1, 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	if err := svc.DeleteDatabase(ctx, "t", "b"); err != nil {
		t.Fatalf("DeleteDatabase: %v", err)
	}
	if err := svc.DeleteDatabase(ctx, "t", "b"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOnSQLite_TenantsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s, err := sqlite.Open(ctx, sqlite.Config{Path: sqlite.MemoryPath})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Close)
	svc := New(s)

	if err := svc.CreateDatabase(ctx, "acme", "sales"); err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	if _, err := svc.GetDatabase(ctx, "other", "sales"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound across tenants, got %v", err)
	}
	list, err := svc.ListDatabases(ctx, "acme", 1, 1)
	if err != nil {
		t.Fatalf("ListDatabases: %v", err)
	}
	if len(list) != 1 || list[0].Name != "sales" {
		t.Errorf("page = %+v", list)
	}
}
