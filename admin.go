package seekdb

import (
	"context"
	"fmt"
	"time"

	adminuc "github.com/kailas-cloud/seekdb/internal/usecase/admin"
)

// AdminClient manages the databases of the client's tenant.
type AdminClient struct {
	svc    *adminuc.Service
	tenant string
	obs    *observer
}

// CreateDatabase creates a database. It fails with ErrAlreadyExists when
// the name is taken.
func (a *AdminClient) CreateDatabase(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { a.obs.observe("database.create", start, err) }()

	if err = a.svc.CreateDatabase(ctx, a.tenant, name); err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	return nil
}

// GetDatabase returns a database. It fails with ErrNotFound when missing.
func (a *AdminClient) GetDatabase(ctx context.Context, name string) (_ Database, err error) {
	start := time.Now()
	defer func() { a.obs.observe("database.get", start, err) }()

	info, err := a.svc.GetDatabase(ctx, a.tenant, name)
	if err != nil {
		return Database{}, fmt.Errorf("get database: %w", err)
	}
	return databaseFromInfo(info), nil
}

// DeleteDatabase drops a database with all its collections.
func (a *AdminClient) DeleteDatabase(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { a.obs.observe("database.delete", start, err) }()

	if err = a.svc.DeleteDatabase(ctx, a.tenant, name); err != nil {
		return fmt.Errorf("delete database: %w", err)
	}
	return nil
}

// ListDatabases returns databases ordered by name. limit 0 is unbounded.
func (a *AdminClient) ListDatabases(ctx context.Context, limit, offset int) (_ []Database, err error) {
	start := time.Now()
	defer func() { a.obs.observe("database.list", start, err) }()

	infos, err := a.svc.ListDatabases(ctx, a.tenant, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	out := make([]Database, len(infos))
	for i, info := range infos {
		out[i] = databaseFromInfo(info)
	}
	return out, nil
}
