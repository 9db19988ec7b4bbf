// Package seekdb is a vector data-access layer: collections of records
// (id, embedding, document, metadata) with filtered nearest-neighbour
// queries, full-text search and hybrid search fused with reciprocal rank
// fusion, over three interchangeable backends.
//
//   - Embedded: a local SQLite file (WithEmbedded)
//   - Server: Redis with the search module (WithServer)
//   - Multi-tenant: PostgreSQL with pgvector, scoped per tenant (WithMultiTenant)
//
// # Collections
//
//	client, _ := seekdb.New(ctx, seekdb.WithEmbedded("data.db"))
//	defer client.Close()
//
//	docs, _ := client.GetOrCreateCollection(ctx, "docs")
//	_ = docs.Add(ctx, seekdb.Records{
//	    IDs:       seekdb.Many("a", "b"),
//	    Documents: seekdb.Many("vector databases", "relational tables"),
//	    Metadatas: seekdb.Many(map[string]any{"year": 2024}, map[string]any{"year": 1999}),
//	})
//
//	res, _ := docs.Query(ctx, seekdb.QueryRequest{
//	    QueryTexts: seekdb.One("similarity search"),
//	    Where:      seekdb.Filter{"year": seekdb.Filter{"$gte": 2000}},
//	    NResults:   5,
//	})
//	hits, _ := res.Scalar()
//
// Calls taking One(x) return scalar-shaped results; calls taking Many(...)
// return one entry per input, even for a single element.
//
// # Embedding functions
//
// Documents without embeddings are embedded by the collection's function.
// The client default is DefaultEmbeddingFunction (a local Ollama model);
// WithEmbeddingFunction and WithFunction replace it with any
// EmbeddingFunction, such as NewOpenAIEmbeddingFunction or the offline
// NewHashEmbeddingFunction.
//
// # Hybrid search
//
//	hits, _ := docs.HybridSearch(ctx, seekdb.HybridSearchRequest{
//	    Query:    &seekdb.TextQuery{WhereDocument: seekdb.Filter{"$contains": "vector"}},
//	    KNN:      &seekdb.KNNQuery{QueryTexts: []string{"vector search"}},
//	    Rank:     &seekdb.Rank{RRF: &seekdb.RRF{RankConstant: 60}},
//	    NResults: 10,
//	})
package seekdb
