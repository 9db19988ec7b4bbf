// Package result shapes backend rows into caller-facing hits.
package result

import (
	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/domain/record"
)

// Item is one returned record. Distance is set only for similarity-ranked
// operations; Score only for fused hybrid hits.
type Item struct {
	ID        string
	Document  *string
	Embedding []float32
	Metadata  map[string]any
	Distance  *float64
	Score     *float64
}

// FromRow converts a backend row, keeping only the included fields.
func FromRow(row *db.Row, ranked bool, inc record.IncludeSet) Item {
	it := Item{ID: row.ID}
	if inc.Documents {
		it.Document = row.Document
	}
	if inc.Metadatas {
		it.Metadata = row.Metadata
	}
	if inc.Embeddings {
		it.Embedding = row.Embedding
	}
	if ranked {
		d := row.Distance
		it.Distance = &d
	}
	return it
}

// FromRows converts rows in order.
func FromRows(rows []db.Row, ranked bool, inc record.IncludeSet) []Item {
	items := make([]Item, len(rows))
	for i := range rows {
		items[i] = FromRow(&rows[i], ranked, inc)
	}
	return items
}

// Shaped carries results together with the shape of the call that produced
// them. Only a scalar-shaped call collapses to a single value.
type Shaped[T any] struct {
	items  []T
	scalar bool
}

// NewShaped wraps items; scalar comes from the input batch, never from len(items).
func NewShaped[T any](items []T, scalar bool) Shaped[T] {
	return Shaped[T]{items: items, scalar: scalar}
}

// Items returns every result in order.
func (s Shaped[T]) Items() []T { return s.items }

// Len returns the number of results.
func (s Shaped[T]) Len() int { return len(s.items) }

// IsScalar reports whether the originating call was scalar-shaped.
func (s Shaped[T]) IsScalar() bool { return s.scalar }

// Scalar returns the single result of a scalar-shaped call.
// ok is false for sequence-shaped calls and for empty results.
func (s Shaped[T]) Scalar() (T, bool) {
	var zero T
	if !s.scalar || len(s.items) != 1 {
		return zero, false
	}
	return s.items[0], true
}
