package db

import "github.com/kailas-cloud/seekdb/internal/predicate"

// Scope addresses one database of one tenant.
type Scope struct {
	Tenant   string
	Database string
}

// DatabaseInfo is a stored database entry.
type DatabaseInfo struct {
	Tenant    string
	Name      string
	CreatedAt int64
}

// CollectionInfo is a stored collection definition.
// Fields maps metadata field names to their type family.
type CollectionInfo struct {
	ID        string
	Name      string
	Dimension int
	Distance  string
	Metadata  map[string]any
	Fields    map[string]string
	CreatedAt int64
}

// CollectionRef identifies the record storage of one collection.
type CollectionRef struct {
	Scope
	ID        string
	Name      string
	Dimension int
	Distance  string
	Fields    map[string]string
}

// RefOf builds the record storage reference for a stored collection.
func RefOf(scope Scope, info *CollectionInfo) *CollectionRef {
	return &CollectionRef{
		Scope:     scope,
		ID:        info.ID,
		Name:      info.Name,
		Dimension: info.Dimension,
		Distance:  info.Distance,
		Fields:    info.Fields,
	}
}

// Include selects which optional columns a read hydrates.
type Include struct {
	Documents  bool
	Metadatas  bool
	Embeddings bool
}

// RowQuery reads rows of one collection.
type RowQuery struct {
	Collection *CollectionRef
	Predicate  *predicate.Predicate
	// Vector switches the read to nearest-neighbour order.
	Vector  []float32
	Limit   int // 0 = unbounded
	Offset  int
	Include Include
}

// TextQuery ranks rows of one collection by full-text relevance to Terms.
type TextQuery struct {
	Collection *CollectionRef
	Predicate  *predicate.Predicate
	Terms      []string
	Limit      int
	Include    Include
}

// Row is one stored record as read from a backend.
// Distance is set by nearest-neighbour reads, Score by text searches.
type Row struct {
	ID        string
	Document  *string
	Embedding []float32
	Metadata  map[string]any
	Distance  float64
	Score     float64
}

// RowWrite is one record change. A nil Document or Embedding leaves the
// stored value unchanged on update; an empty document clears it.
// Metadata replaces the stored map when SetMetadata is true.
type RowWrite struct {
	ID          string
	Insert      bool
	Document    *string
	Embedding   []float32
	Metadata    map[string]any
	SetMetadata bool
}

// Mutation is an ordered batch of writes applied as one unit.
// Inserting an existing id fails with ErrKeyExists, updating a missing one
// with ErrKeyNotFound.
type Mutation struct {
	Collection *CollectionRef
	Rows       []RowWrite
}
