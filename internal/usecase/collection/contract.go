package collection

import (
	"context"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/predicate"
)

// Catalog is the storage contract of the catalog service.
type Catalog interface {
	GetDatabase(ctx context.Context, tenant, name string) (db.DatabaseInfo, error)
	CreateDatabase(ctx context.Context, tenant, name string) error

	CreateCollection(ctx context.Context, scope db.Scope, info *db.CollectionInfo) error
	GetCollection(ctx context.Context, scope db.Scope, name string) (db.CollectionInfo, error)
	ListCollections(ctx context.Context, scope db.Scope) ([]db.CollectionInfo, error)
	DeleteCollection(ctx context.Context, scope db.Scope, name string) error
}

// Store is the storage contract of the record engine.
type Store interface {
	GetCollection(ctx context.Context, scope db.Scope, name string) (db.CollectionInfo, error)
	AddFields(ctx context.Context, ref *db.CollectionRef, fields map[string]string) error
	db.RecordStore
	Dialect() predicate.Dialect
}
