package search

import (
	"context"

	"github.com/kailas-cloud/seekdb/internal/db"
	domcol "github.com/kailas-cloud/seekdb/internal/domain/collection"
	"github.com/kailas-cloud/seekdb/internal/predicate"
	"github.com/kailas-cloud/seekdb/internal/usecase/collection"
)

// Store is the storage contract of hybrid search.
type Store interface {
	Query(ctx context.Context, q *db.RowQuery) ([]db.Row, error)
	SearchText(ctx context.Context, q *db.TextQuery) ([]db.Row, error)
	Capabilities() db.Capabilities
}

// Collections reloads collection definitions for a handle.
type Collections interface {
	Refresh(ctx context.Context, h collection.Handle) (domcol.Collection, error)
	Compiler() *predicate.Compiler
}
