// Package admin manages the databases of a tenant.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/domain/mode"
)

// Catalog is the storage contract of the admin service.
type Catalog interface {
	CreateDatabase(ctx context.Context, tenant, name string) error
	GetDatabase(ctx context.Context, tenant, name string) (db.DatabaseInfo, error)
	DeleteDatabase(ctx context.Context, tenant, name string) error
	ListDatabases(ctx context.Context, tenant string, limit, offset int) ([]db.DatabaseInfo, error)
}

// Service creates, inspects and drops databases.
// The default database exists implicitly and is materialized on first use.
type Service struct {
	catalog Catalog
}

// New creates an admin service.
func New(catalog Catalog) *Service {
	return &Service{catalog: catalog}
}

// CreateDatabase creates a database in tenant.
func (s *Service) CreateDatabase(ctx context.Context, tenant, name string) error {
	if err := mode.ValidateName("database", name); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	err := s.catalog.CreateDatabase(ctx, tenant, name)
	if errors.Is(err, db.ErrKeyExists) {
		return fmt.Errorf("database %q: %w", name, domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	return nil
}

// GetDatabase returns a database of tenant.
func (s *Service) GetDatabase(ctx context.Context, tenant, name string) (db.DatabaseInfo, error) {
	info, err := s.catalog.GetDatabase(ctx, tenant, name)
	if errors.Is(err, db.ErrKeyNotFound) && name == mode.DefaultDatabase {
		if err := s.ensureDefault(ctx, tenant); err != nil {
			return db.DatabaseInfo{}, err
		}
		info, err = s.catalog.GetDatabase(ctx, tenant, name)
	}
	if errors.Is(err, db.ErrKeyNotFound) {
		return db.DatabaseInfo{}, fmt.Errorf("database %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return db.DatabaseInfo{}, fmt.Errorf("get database: %w", err)
	}
	return info, nil
}

// DeleteDatabase drops a database with all of its collections.
func (s *Service) DeleteDatabase(ctx context.Context, tenant, name string) error {
	err := s.catalog.DeleteDatabase(ctx, tenant, name)
	if errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("database %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete database: %w", err)
	}
	return nil
}

// ListDatabases returns databases of tenant ordered by name.
// limit 0 means unbounded.
func (s *Service) ListDatabases(ctx context.Context, tenant string, limit, offset int) ([]db.DatabaseInfo, error) {
	if limit < 0 || offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", domain.ErrInvalidArgument)
	}
	if err := s.ensureDefault(ctx, tenant); err != nil {
		return nil, err
	}
	out, err := s.catalog.ListDatabases(ctx, tenant, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	return out, nil
}

func (s *Service) ensureDefault(ctx context.Context, tenant string) error {
	_, err := s.catalog.GetDatabase(ctx, tenant, mode.DefaultDatabase)
	if !errors.Is(err, db.ErrKeyNotFound) {
		if err != nil {
			return fmt.Errorf("get default database: %w", err)
		}
		return nil
	}
	err = s.catalog.CreateDatabase(ctx, tenant, mode.DefaultDatabase)
	if err != nil && !errors.Is(err, db.ErrKeyExists) {
		return fmt.Errorf("create default database: %w", err)
	}
	return nil
}
