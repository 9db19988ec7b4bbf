package seekdb

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestCollection(t *testing.T, opts ...CollectionOption) *Collection {
	t.Helper()
	c := newTestClient(t)
	col, err := c.CreateCollection(context.Background(), "docs", opts...)
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	return col
}

func TestCollection_RecordRoundTrip(t *testing.T) {
	col := newTestCollection(t)
	ctx := context.Background()

	err := col.Add(ctx, Records{
		IDs:       Many("a", "b"),
		Documents: Many("apples", "bananas"),
		Metadatas: Many(map[string]any{"n": 1}, map[string]any{"n": 2}),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	res, err := col.Get(ctx, GetRequest{IDs: One("a"), Include: []Include{IncludeDocuments, IncludeEmbeddings}})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	item, ok := res.Scalar()
	if !ok || item.ID != "a" || item.Document == nil || *item.Document != "apples" {
		t.Fatalf("scalar get = %+v, %v", item, ok)
	}
	if len(item.Embedding) != testDim {
		t.Errorf("embedding length = %d, want %d", len(item.Embedding), testDim)
	}

	res, err = col.Get(ctx, GetRequest{IDs: Many("a")})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.IsScalar() || res.Len() != 1 {
		t.Errorf("a one-element sequence came back scalar=%v len=%d", res.IsScalar(), res.Len())
	}

	if err := col.Update(ctx, Records{IDs: One("b"), Metadatas: One(map[string]any{"n": 5})}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	res, _ = col.Get(ctx, GetRequest{IDs: One("b")})
	if item, _ := res.Scalar(); item.Metadata["n"] != float64(5) || *item.Document != "bananas" {
		t.Errorf("updated = %+v", item)
	}

	if err := col.Upsert(ctx, Records{IDs: Many("b", "c"), Documents: Many("berries", "cherries")}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n, err := col.Count(ctx); err != nil || n != 3 {
		t.Errorf("Count = %d, %v", n, err)
	}
	peek, err := col.Peek(ctx, 2)
	if err != nil || len(peek) != 2 {
		t.Errorf("Peek = %v, %v", peek, err)
	}

	d, err := col.Describe(ctx)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if d.Name != "docs" || d.Count != 3 || d.Dimension != testDim || d.Function != "hash:8" {
		t.Errorf("description = %+v", d)
	}
}

func TestCollection_MutationErrorsAbortBatch(t *testing.T) {
	col := newTestCollection(t)
	ctx := context.Background()
	if err := col.Add(ctx, Records{IDs: One("a"), Documents: One("x")}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	err := col.Add(ctx, Records{IDs: Many("b", "a"), Documents: Many("y", "z")})
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
	err = col.Update(ctx, Records{IDs: Many("a", "missing"), Documents: Many("y", "z")})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if n, _ := col.Count(ctx); n != 1 {
		t.Errorf("count = %d, failed batches wrote rows", n)
	}
	res, _ := col.Get(ctx, GetRequest{IDs: One("a")})
	if item, _ := res.Scalar(); item.Document == nil || *item.Document != "x" {
		t.Errorf("a = %+v", item)
	}
}

func TestCollection_CosineQuery(t *testing.T) {
	col := newTestCollection(t, WithoutFunction(), WithConfiguration(HNSWConfiguration{Dimension: 2, Distance: Cosine}))
	ctx := context.Background()
	err := col.Add(ctx, Records{
		IDs:        Many("a", "b"),
		Embeddings: Many([]float32{1, 0}, []float32{0, 1}),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	res, err := col.Query(ctx, QueryRequest{QueryEmbeddings: One([]float32{1, 0}), NResults: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	hits, ok := res.Scalar()
	if !ok || len(hits) != 2 {
		t.Fatalf("hits = %+v", hits)
	}
	if hits[0].ID != "a" || hits[0].Distance == nil || *hits[0].Distance != 0 {
		t.Errorf("top = %+v", hits[0])
	}
	if hits[1].ID != "b" || *hits[1].Distance <= *hits[0].Distance {
		t.Errorf("second = %+v", hits[1])
	}

	_, err = col.Query(ctx, QueryRequest{QueryTexts: One("apples")})
	if !errors.Is(err, ErrMissingEmbeddingFunction) {
		t.Errorf("expected ErrMissingEmbeddingFunction, got %v", err)
	}
	_, err = col.Query(ctx, QueryRequest{QueryEmbeddings: One([]float32{1, 0, 0})})
	var dm *DimensionMismatchError
	if !errors.As(err, &dm) || dm.Expected != 2 || dm.Actual != 3 {
		t.Errorf("expected DimensionMismatchError 2/3, got %v", err)
	}
}

func TestCollection_DeleteByFilter(t *testing.T) {
	col := newTestCollection(t)
	ctx := context.Background()
	err := col.Add(ctx, Records{
		IDs:       Many("a", "b", "c"),
		Documents: Many("one", "two", "three"),
		Metadatas: Many(map[string]any{"n": 1}, map[string]any{"n": 2}, map[string]any{"n": 3}),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	n, err := col.Delete(ctx, DeleteRequest{Where: Filter{"n": Filter{"$lt": 2}}})
	if err != nil || n != 1 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	res, _ := col.Get(ctx, GetRequest{})
	if res.Len() != 2 || res.Items()[0].ID != "b" {
		t.Errorf("remaining = %+v", res.Items())
	}

	_, err = col.Delete(ctx, DeleteRequest{Where: Filter{"n": Filter{"$near": 2}}})
	if !errors.Is(err, ErrFilterSyntax) {
		t.Errorf("expected ErrFilterSyntax, got %v", err)
	}
	_, err = col.Delete(ctx, DeleteRequest{})
	if !errors.Is(err, ErrMissingInput) {
		t.Errorf("expected ErrMissingInput, got %v", err)
	}
}

func TestCollection_HybridSearch(t *testing.T) {
	col := newTestCollection(t, WithoutFunction(), WithConfiguration(HNSWConfiguration{Dimension: 2, Distance: L2}))
	ctx := context.Background()
	err := col.Add(ctx, Records{
		IDs:        Many("a", "b", "c"),
		Embeddings: Many([]float32{0, 0}, []float32{1, 1}, []float32{9, 9}),
		Documents:  Many("vector databases", "relational tables", "vector math"),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	hits, err := col.HybridSearch(ctx, HybridSearchRequest{
		Query:    &TextQuery{WhereDocument: Filter{"$contains": "vector"}},
		KNN:      &KNNQuery{QueryEmbeddings: [][]float32{{0, 0}}},
		Rank:     &Rank{RRF: &RRF{RankConstant: 60}},
		NResults: 2,
	})
	if err != nil {
		t.Fatalf("HybridSearch: %v", err)
	}
	if len(hits) != 2 || hits[0].ID != "a" || hits[0].Score == nil {
		t.Fatalf("hits = %+v", hits)
	}

	if _, err := col.HybridSearch(ctx, HybridSearchRequest{}); !errors.Is(err, ErrMissingInput) {
		t.Errorf("expected ErrMissingInput, got %v", err)
	}
}

func TestCollection_String(t *testing.T) {
	col := newTestCollection(t, WithoutFunction())
	s := col.String()
	if !strings.Contains(s, "name=docs") || !strings.Contains(s, "function=none") {
		t.Errorf("String() = %q", s)
	}
}
