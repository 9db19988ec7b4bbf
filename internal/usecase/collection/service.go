package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/domain"
	domcol "github.com/kailas-cloud/seekdb/internal/domain/collection"
	"github.com/kailas-cloud/seekdb/internal/domain/mode"
	"github.com/kailas-cloud/seekdb/internal/usecase/embedding"
)

// CreateOptions configure a new collection. A nil Configuration is probed
// from Function, or defaults to 384 dimensions with cosine distance.
type CreateOptions struct {
	Configuration *domcol.Configuration
	Metadata      map[string]any
	Function      domain.EmbeddingFunction
}

// Service manages collection definitions within a database.
type Service struct {
	catalog  Catalog
	resolver *embedding.Resolver
}

// NewService creates a catalog service.
func NewService(catalog Catalog, resolver *embedding.Resolver) *Service {
	return &Service{catalog: catalog, resolver: resolver}
}

// Create stores a new collection and returns a handle bound to opts.Function.
func (s *Service) Create(ctx context.Context, scope db.Scope, name string, opts CreateOptions) (Handle, error) {
	if err := domcol.ValidateName(name); err != nil {
		return Handle{}, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	cfg, err := s.resolver.ProbeDimension(ctx, opts.Configuration, opts.Function)
	if err != nil {
		return Handle{}, err
	}
	col, err := domcol.New(name, cfg, opts.Metadata, nil)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	if err := s.ensureDatabase(ctx, scope); err != nil {
		return Handle{}, err
	}
	if err := s.catalog.CreateCollection(ctx, scope, toInfo(col)); err != nil {
		return Handle{}, catalogError(err, "collection", name)
	}
	return Handle{Scope: scope, Collection: col.Bind(opts.Function)}, nil
}

// Get loads a collection and binds fn to the returned handle.
// A function reporting a dimension other than the stored one is rejected.
func (s *Service) Get(ctx context.Context, scope db.Scope, name string, fn domain.EmbeddingFunction) (Handle, error) {
	info, err := s.catalog.GetCollection(ctx, scope, name)
	if err != nil {
		return Handle{}, catalogError(err, "collection", name)
	}
	col := fromInfo(&info)
	if d, ok := fn.(domain.Dimensioner); ok && d.Dimension() > 0 && d.Dimension() != col.Dimension() {
		return Handle{}, &domain.DimensionMismatchError{Expected: col.Dimension(), Actual: d.Dimension()}
	}
	return Handle{Scope: scope, Collection: col.Bind(fn)}, nil
}

// GetOrCreate returns the named collection, creating it when missing.
func (s *Service) GetOrCreate(ctx context.Context, scope db.Scope, name string, opts CreateOptions) (Handle, error) {
	h, err := s.Get(ctx, scope, name, opts.Function)
	if !errors.Is(err, domain.ErrNotFound) {
		return h, err
	}
	h, err = s.Create(ctx, scope, name, opts)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return s.Get(ctx, scope, name, opts.Function)
	}
	return h, err
}

// Delete removes a collection with all of its records.
func (s *Service) Delete(ctx context.Context, scope db.Scope, name string) error {
	if err := s.catalog.DeleteCollection(ctx, scope, name); err != nil {
		return catalogError(err, "collection", name)
	}
	return nil
}

// List returns the collections of a database ordered by name.
func (s *Service) List(ctx context.Context, scope db.Scope) ([]domcol.Collection, error) {
	infos, err := s.catalog.ListCollections(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	out := make([]domcol.Collection, len(infos))
	for i := range infos {
		out[i] = fromInfo(&infos[i])
	}
	return out, nil
}

// Has reports whether the named collection exists.
func (s *Service) Has(ctx context.Context, scope db.Scope, name string) (bool, error) {
	_, err := s.catalog.GetCollection(ctx, scope, name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, db.ErrKeyNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("get collection: %w", err)
	}
}

// Count returns the number of collections in a database.
func (s *Service) Count(ctx context.Context, scope db.Scope) (int, error) {
	infos, err := s.catalog.ListCollections(ctx, scope)
	if err != nil {
		return 0, fmt.Errorf("list collections: %w", err)
	}
	return len(infos), nil
}

// ensureDatabase creates the default database on first use.
// Any other database must have been created through the admin API.
func (s *Service) ensureDatabase(ctx context.Context, scope db.Scope) error {
	_, err := s.catalog.GetDatabase(ctx, scope.Tenant, scope.Database)
	if err == nil {
		return nil
	}
	if !errors.Is(err, db.ErrKeyNotFound) || scope.Database != mode.DefaultDatabase {
		return catalogError(err, "database", scope.Database)
	}
	err = s.catalog.CreateDatabase(ctx, scope.Tenant, scope.Database)
	if err != nil && !errors.Is(err, db.ErrKeyExists) {
		return fmt.Errorf("create default database: %w", err)
	}
	return nil
}
