package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/seekdb/internal/domain/version"
	"github.com/kailas-cloud/seekdb/internal/predicate"
)

// Backend is the storage facade every backend mode implements.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Backend interface {
	Pinger
	Catalog
	RecordStore
	Searcher
	KVStore
	// Dialect returns the predicate dialect filters must be compiled with.
	Dialect() predicate.Dialect
	// Capabilities reports optional features of the backend.
	Capabilities() Capabilities
	// DetectVersion reports the engine type and version.
	DetectVersion(ctx context.Context) (string, version.Version, error)
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Capabilities lists optional backend features.
type Capabilities struct {
	TextSearch bool
	Regex      bool
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Catalog stores databases and collection definitions.
type Catalog interface {
	CreateDatabase(ctx context.Context, tenant, name string) error
	GetDatabase(ctx context.Context, tenant, name string) (DatabaseInfo, error)
	DeleteDatabase(ctx context.Context, tenant, name string) error
	ListDatabases(ctx context.Context, tenant string, limit, offset int) ([]DatabaseInfo, error)

	CreateCollection(ctx context.Context, scope Scope, info *CollectionInfo) error
	GetCollection(ctx context.Context, scope Scope, name string) (CollectionInfo, error)
	ListCollections(ctx context.Context, scope Scope) ([]CollectionInfo, error)
	DeleteCollection(ctx context.Context, scope Scope, name string) error
	// AddFields extends a collection's metadata schema.
	AddFields(ctx context.Context, ref *CollectionRef, fields map[string]string) error
}

// RecordStore reads and writes collection records.
type RecordStore interface {
	// Query returns rows matching the predicate. Without a vector rows come in
	// native row order; with a vector they are ordered by ascending distance.
	Query(ctx context.Context, q *RowQuery) ([]Row, error)
	// Mutate applies a batch of inserts and updates as one unit.
	Mutate(ctx context.Context, m *Mutation) error
	// Delete removes matching rows and returns how many were removed.
	Delete(ctx context.Context, ref *CollectionRef, p *predicate.Predicate) (int, error)
	// ExistingIDs reports which of ids are stored.
	ExistingIDs(ctx context.Context, ref *CollectionRef, ids []string) (map[string]bool, error)
	Count(ctx context.Context, ref *CollectionRef) (int, error)
}

// Searcher ranks rows by full-text relevance.
type Searcher interface {
	SearchText(ctx context.Context, q *TextQuery) ([]Row, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
