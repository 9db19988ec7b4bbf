package seekdb

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/domain/search/request"
	collectionuc "github.com/kailas-cloud/seekdb/internal/usecase/collection"
	searchuc "github.com/kailas-cloud/seekdb/internal/usecase/search"
)

// Collection is a handle to one collection bound to an optional embedding
// function. Handles are cheap; reopen one after the collection is dropped.
type Collection struct {
	handle  collectionuc.Handle
	records *collectionuc.Engine
	hybrid  *searchuc.Engine
	obs     *observer
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.handle.Collection.Name() }

// ID returns the collection id assigned at creation.
func (c *Collection) ID() string { return c.handle.Collection.ID() }

// Dimension returns the vector size of the collection.
func (c *Collection) Dimension() int { return c.handle.Collection.Dimension() }

// Distance returns the similarity metric of the collection.
func (c *Collection) Distance() Distance { return c.handle.Collection.Distance() }

// Metadata returns a copy of the collection metadata.
func (c *Collection) Metadata() map[string]any { return c.handle.Collection.Metadata() }

// EmbeddingFunction returns the bound function, nil when none is bound.
func (c *Collection) EmbeddingFunction() EmbeddingFunction {
	return c.handle.Collection.Binding().Function()
}

// Add inserts new records. Documents without embeddings are embedded with
// the bound function. Any id already stored fails the whole batch with
// ErrDuplicateID.
func (c *Collection) Add(ctx context.Context, recs Records) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("add", start, err) }()

	if err = c.records.Add(ctx, c.handle, recs); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	return nil
}

// Update changes stored records; unsupplied fields keep their values.
// Any missing id fails the whole batch with ErrNotFound.
func (c *Collection) Update(ctx context.Context, recs Records) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("update", start, err) }()

	if err = c.records.Update(ctx, c.handle, recs); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return nil
}

// Upsert inserts missing records and updates existing ones.
func (c *Collection) Upsert(ctx context.Context, recs Records) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("upsert", start, err) }()

	if err = c.records.Upsert(ctx, c.handle, recs); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// Delete removes the records matching ids and filters and returns how many
// were removed. At least one selector is required.
func (c *Collection) Delete(ctx context.Context, req DeleteRequest) (_ int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete", start, err) }()

	n, err := c.records.Delete(ctx, c.handle, req)
	if err != nil {
		return 0, fmt.Errorf("delete: %w", err)
	}
	return n, nil
}

// Get returns records by id or filter in storage order.
func (c *Collection) Get(ctx context.Context, req GetRequest) (_ GetResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get", start, err) }()

	res, err := c.records.Get(ctx, c.handle, req)
	if err != nil {
		return GetResult{}, fmt.Errorf("get: %w", err)
	}
	return res, nil
}

// Query runs one nearest-neighbour search per query embedding or text.
func (c *Collection) Query(ctx context.Context, req QueryRequest) (_ QueryResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("query", start, err) }()

	res, err := c.records.Query(ctx, c.handle, req)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query: %w", err)
	}
	return res, nil
}

// HybridSearch runs a full-text and a vector search and fuses the rankings
// with reciprocal rank fusion. With one sub-request its ranking is returned
// unchanged.
func (c *Collection) HybridSearch(ctx context.Context, in HybridSearchRequest) (_ []Item, err error) {
	start := time.Now()
	defer func() { c.obs.observe("hybrid_search", start, err) }()

	h, err := request.New(in)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	items, err := c.hybrid.Search(ctx, c.handle, &h)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	return items, nil
}

// Count returns the number of records.
func (c *Collection) Count(ctx context.Context) (_ int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("count", start, err) }()

	n, err := c.records.Count(ctx, c.handle)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Peek returns the first limit records, 10 when limit <= 0.
func (c *Collection) Peek(ctx context.Context, limit int) (_ []Item, err error) {
	start := time.Now()
	defer func() { c.obs.observe("peek", start, err) }()

	items, err := c.records.Peek(ctx, c.handle, limit)
	if err != nil {
		return nil, fmt.Errorf("peek: %w", err)
	}
	return items, nil
}

// Describe reports the stored definition, size and bound function name.
func (c *Collection) Describe(ctx context.Context) (_ Description, err error) {
	start := time.Now()
	defer func() { c.obs.observe("describe", start, err) }()

	d, err := c.records.Describe(ctx, c.handle)
	if err != nil {
		return Description{}, fmt.Errorf("describe: %w", err)
	}
	return d, nil
}

// String implements fmt.Stringer.
func (c *Collection) String() string {
	return fmt.Sprintf("Collection(name=%s, dimension=%d, distance=%s, function=%s)",
		c.Name(), c.Dimension(), c.Distance(), functionName(c.EmbeddingFunction()))
}

func functionName(fn domain.EmbeddingFunction) string {
	if fn == nil {
		return "none"
	}
	return domain.FunctionName(fn)
}
