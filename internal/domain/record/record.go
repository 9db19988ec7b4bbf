// Package record holds the call-shape types shared by collection operations.
package record

import "fmt"

// Batch is an ordered input sequence that remembers whether the caller
// supplied a single value. The zero Batch means "not supplied".
type Batch[T any] struct {
	items    []T
	scalar   bool
	supplied bool
}

// One wraps a single value.
func One[T any](v T) Batch[T] {
	return Batch[T]{items: []T{v}, scalar: true, supplied: true}
}

// Many wraps a sequence. A length-1 sequence stays a sequence.
func Many[T any](vs ...T) Batch[T] {
	return Batch[T]{items: vs, supplied: true}
}

// Items returns the normalized sequence.
func (b Batch[T]) Items() []T { return b.items }

// Len returns the number of items.
func (b Batch[T]) Len() int { return len(b.items) }

// Scalar reports whether the caller supplied a single value.
func (b Batch[T]) Scalar() bool { return b.scalar }

// Supplied reports whether the caller passed this input at all.
func (b Batch[T]) Supplied() bool { return b.supplied }

// Include names an optional field hydrated into results.
type Include string

// Include constants.
const (
	IncludeDocuments  Include = "documents"
	IncludeMetadatas  Include = "metadatas"
	IncludeEmbeddings Include = "embeddings"
	// IncludeDistances is accepted for compatibility; distances follow the operation kind.
	IncludeDistances Include = "distances"
)

// IncludeSet is the resolved set of optional fields.
type IncludeSet struct {
	Documents  bool
	Metadatas  bool
	Embeddings bool
}

// DefaultInclude hydrates documents and metadatas.
func DefaultInclude() IncludeSet {
	return IncludeSet{Documents: true, Metadatas: true}
}

// ParseInclude resolves caller include names. Nil means the default set.
func ParseInclude(names []Include) (IncludeSet, error) {
	if names == nil {
		return DefaultInclude(), nil
	}
	var s IncludeSet
	for _, n := range names {
		switch n {
		case IncludeDocuments:
			s.Documents = true
		case IncludeMetadatas:
			s.Metadatas = true
		case IncludeEmbeddings:
			s.Embeddings = true
		case IncludeDistances:
		default:
			return IncludeSet{}, fmt.Errorf("unknown include %q", n)
		}
	}
	return s, nil
}

// Record is one stored row.
type Record struct {
	ID        string
	Document  *string
	Embedding []float32
	Metadata  map[string]any
}
