package collection

import (
	"fmt"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/domain/record"
	"github.com/kailas-cloud/seekdb/internal/domain/search/filter"
)

// DefaultNResults is the number of hits a query returns when unset.
const DefaultNResults = 10

// DefaultPeekLimit is the number of rows Peek returns when unset.
const DefaultPeekLimit = 10

// MutateRequest is the input of Add, Update and Upsert.
// Unsupplied batches leave the stored values unchanged.
type MutateRequest struct {
	IDs        record.Batch[string]
	Embeddings record.Batch[[]float32]
	Documents  record.Batch[string]
	Metadatas  record.Batch[map[string]any]
}

// DeleteRequest selects the rows Delete removes.
type DeleteRequest struct {
	IDs           record.Batch[string]
	Where         map[string]any
	WhereDocument map[string]any
}

// GetRequest selects rows in native order.
type GetRequest struct {
	IDs           record.Batch[string]
	Where         map[string]any
	WhereDocument map[string]any
	Limit         int // 0 = unbounded
	Offset        int
	Include       []record.Include
}

// QueryRequest runs one nearest-neighbour search per query vector.
type QueryRequest struct {
	QueryEmbeddings record.Batch[[]float32]
	QueryTexts      record.Batch[string]
	Where           map[string]any
	WhereDocument   map[string]any
	NResults        int
	Include         []record.Include
}

// filters is a parsed where/where_document pair.
type filters struct {
	where filter.Node
	doc   filter.DocumentNode
}

func parseFilters(where, whereDocument map[string]any) (filters, error) {
	w, err := filter.ParseWhere(where)
	if err != nil {
		return filters{}, err
	}
	d, err := filter.ParseWhereDocument(whereDocument)
	if err != nil {
		return filters{}, err
	}
	return filters{where: w, doc: d}, nil
}

func (f filters) empty() bool { return f.where == nil && f.doc == nil }

// optional returns the items of a supplied batch and nil otherwise,
// so an explicitly empty batch stays distinguishable from a missing one.
func optional[T any](b record.Batch[T]) []T {
	if !b.Supplied() {
		return nil
	}
	if items := b.Items(); items != nil {
		return items
	}
	return []T{}
}

func includeOf(names []record.Include) (record.IncludeSet, db.Include, error) {
	inc, err := record.ParseInclude(names)
	if err != nil {
		return record.IncludeSet{}, db.Include{}, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	return inc, db.Include{Documents: inc.Documents, Metadatas: inc.Metadatas, Embeddings: inc.Embeddings}, nil
}

// uniqueIDs rejects empty ids and ids repeated within one call.
func uniqueIDs(ids []string) error {
	seen := make(map[string]bool, len(ids))
	var dup []string
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("%w: empty id", domain.ErrInvalidArgument)
		}
		if seen[id] {
			dup = append(dup, id)
		}
		seen[id] = true
	}
	if len(dup) > 0 {
		return domain.NewDuplicateIDError(dup...)
	}
	return nil
}
