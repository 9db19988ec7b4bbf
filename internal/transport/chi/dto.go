package chi

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/seekdb/internal/domain/record"
	"github.com/kailas-cloud/seekdb/internal/domain/search/result"
	collectionuc "github.com/kailas-cloud/seekdb/internal/usecase/collection"
)

// oneOrMany accepts a JSON value or an array of values and remembers which
// one the caller sent. null or an absent key leaves it unsupplied.
type oneOrMany[T any] struct {
	batch record.Batch[T]
}

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '[':
		var vs []T
		if err := json.Unmarshal(data, &vs); err != nil {
			return err //nolint:wrapcheck // decoder error carries the offset
		}
		o.batch = record.Many(vs...)
	default:
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return err //nolint:wrapcheck // decoder error carries the offset
		}
		o.batch = record.One(v)
	}
	return nil
}

// vectors accepts one embedding ([1,2]) or a list of them ([[1,2],[3,4]]).
type vectors struct {
	batch record.Batch[[]float32]
}

func (v *vectors) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) == 0 || data[0] != '[' {
		return fmt.Errorf("embeddings must be an array")
	}
	inner := bytes.TrimSpace(data[1:])
	if len(inner) > 0 && inner[0] == '[' {
		var vs [][]float32
		if err := json.Unmarshal(data, &vs); err != nil {
			return err //nolint:wrapcheck // decoder error carries the offset
		}
		v.batch = record.Many(vs...)
		return nil
	}
	var one []float32
	if err := json.Unmarshal(data, &one); err != nil {
		return err //nolint:wrapcheck // decoder error carries the offset
	}
	if len(one) == 0 {
		// [] is an empty list of embeddings, not one empty vector.
		v.batch = record.Many[[]float32]()
		return nil
	}
	v.batch = record.One(one)
	return nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type createDatabaseRequest struct {
	Name string `json:"name"`
}

type databaseResponse struct {
	Name      string `json:"name"`
	Tenant    string `json:"tenant"`
	CreatedAt int64  `json:"created_at"`
}

type configurationDTO struct {
	Dimension int    `json:"dimension"`
	Distance  string `json:"distance,omitempty"`
}

type createCollectionRequest struct {
	Name          string            `json:"name"`
	Configuration *configurationDTO `json:"configuration,omitempty"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
	GetOrCreate   bool              `json:"get_or_create,omitempty"`
}

type fieldDTO struct {
	Name   string `json:"name"`
	Family string `json:"type"`
}

type collectionResponse struct {
	Name              string           `json:"name"`
	ID                string           `json:"id"`
	Configuration     configurationDTO `json:"configuration"`
	Metadata          map[string]any   `json:"metadata,omitempty"`
	Fields            []fieldDTO       `json:"fields,omitempty"`
	Count             *int             `json:"count,omitempty"`
	EmbeddingFunction string           `json:"embedding_function,omitempty"`
}

type mutateRequest struct {
	IDs        oneOrMany[string]         `json:"ids"`
	Embeddings vectors                   `json:"embeddings"`
	Documents  oneOrMany[string]         `json:"documents"`
	Metadatas  oneOrMany[map[string]any] `json:"metadatas"`
}

func (r *mutateRequest) toUsecase() collectionuc.MutateRequest {
	return collectionuc.MutateRequest{
		IDs:        r.IDs.batch,
		Embeddings: r.Embeddings.batch,
		Documents:  r.Documents.batch,
		Metadatas:  r.Metadatas.batch,
	}
}

type deleteRequest struct {
	IDs           oneOrMany[string] `json:"ids"`
	Where         map[string]any    `json:"where"`
	WhereDocument map[string]any    `json:"where_document"`
}

type deleteResponse struct {
	Deleted int `json:"deleted"`
}

type getRequest struct {
	IDs           oneOrMany[string] `json:"ids"`
	Where         map[string]any    `json:"where"`
	WhereDocument map[string]any    `json:"where_document"`
	Limit         int               `json:"limit"`
	Offset        int               `json:"offset"`
	Include       []record.Include  `json:"include"`
}

type queryRequest struct {
	QueryEmbeddings vectors           `json:"query_embeddings"`
	QueryTexts      oneOrMany[string] `json:"query_texts"`
	Where           map[string]any    `json:"where"`
	WhereDocument   map[string]any    `json:"where_document"`
	NResults        int               `json:"n_results"`
	Include         []record.Include  `json:"include"`
}

type countResponse struct {
	Count int `json:"count"`
}

type itemDTO struct {
	ID        string         `json:"id"`
	Document  *string        `json:"document,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Distance  *float64       `json:"distance,omitempty"`
	Score     *float64       `json:"score,omitempty"`
}

// resultsResponse carries a single item (scalar get), a list of items, or a
// list of lists (batch query), following the shape of the request.
type resultsResponse struct {
	Results any `json:"results"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Engine  string            `json:"engine,omitempty"`
	Version string            `json:"version,omitempty"`
}

func itemToDTO(it *result.Item) itemDTO {
	return itemDTO{
		ID:        it.ID,
		Document:  it.Document,
		Embedding: it.Embedding,
		Metadata:  it.Metadata,
		Distance:  it.Distance,
		Score:     it.Score,
	}
}

func itemsToDTO(items []result.Item) []itemDTO {
	out := make([]itemDTO, len(items))
	for i := range items {
		out[i] = itemToDTO(&items[i])
	}
	return out
}

func getResults(s result.Shaped[result.Item]) any {
	if s.IsScalar() {
		it, ok := s.Scalar()
		if !ok {
			return nil
		}
		return itemToDTO(&it)
	}
	return itemsToDTO(s.Items())
}

func queryResults(s result.Shaped[[]result.Item]) any {
	if hits, ok := s.Scalar(); ok {
		return itemsToDTO(hits)
	}
	out := make([][]itemDTO, s.Len())
	for i, hits := range s.Items() {
		out[i] = itemsToDTO(hits)
	}
	return out
}

func describeToDTO(d *collectionuc.Description) collectionResponse {
	fields := make([]fieldDTO, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = fieldDTO{Name: f.Name(), Family: string(f.Family())}
	}
	count := d.Count
	return collectionResponse{
		Name:              d.Name,
		ID:                d.ID,
		Configuration:     configurationDTO{Dimension: d.Dimension, Distance: string(d.Distance)},
		Metadata:          d.Metadata,
		Fields:            fields,
		Count:             &count,
		EmbeddingFunction: d.Function,
	}
}
