package seekdb

import (
	"github.com/kailas-cloud/seekdb/internal/db"
	domcol "github.com/kailas-cloud/seekdb/internal/domain/collection"
	"github.com/kailas-cloud/seekdb/internal/domain/record"
	"github.com/kailas-cloud/seekdb/internal/domain/search/request"
	"github.com/kailas-cloud/seekdb/internal/domain/search/result"
	"github.com/kailas-cloud/seekdb/internal/domain/version"
	collectionuc "github.com/kailas-cloud/seekdb/internal/usecase/collection"
)

// Batch is one value or a sequence of values. Results keep the shape of
// the batch that selected them.
type Batch[T any] = record.Batch[T]

// One wraps a single value; results of the call are scalar-shaped.
func One[T any](v T) Batch[T] { return record.One(v) }

// Many wraps a sequence; results of the call are sequence-shaped even for one element.
func Many[T any](vs ...T) Batch[T] { return record.Many(vs...) }

// Filter is a metadata or document filter in the $-operator syntax.
type Filter = map[string]any

// Include names an optional field hydrated into results.
type Include = record.Include

// Include values.
const (
	IncludeDocuments  = record.IncludeDocuments
	IncludeMetadatas  = record.IncludeMetadatas
	IncludeEmbeddings = record.IncludeEmbeddings
	IncludeDistances  = record.IncludeDistances
)

// Distance is the similarity metric of a collection.
type Distance = domcol.Distance

// Distance values.
const (
	Cosine       = domcol.Cosine
	L2           = domcol.L2
	InnerProduct = domcol.InnerProduct
)

// HNSWConfiguration fixes the vector size and metric of a collection.
// Dimension is required; an empty Distance means cosine. Collections
// created without a configuration use 384 dimensions and cosine.
type HNSWConfiguration = domcol.Configuration

// Record operation inputs.
type (
	// Records is the input of Add, Update and Upsert.
	Records       = collectionuc.MutateRequest
	DeleteRequest = collectionuc.DeleteRequest
	GetRequest    = collectionuc.GetRequest
	QueryRequest  = collectionuc.QueryRequest
)

// Hybrid search inputs.
type (
	HybridSearchRequest = request.Input
	TextQuery           = request.QueryInput
	KNNQuery            = request.KNNInput
	Rank                = request.RankInput
	RRF                 = request.RRFInput
)

// Item is one returned record.
type Item = result.Item

// GetResult holds the rows of Get; Scalar() returns the only row of a
// single-id call.
type GetResult = result.Shaped[result.Item]

// QueryResult holds one hit list per query.
type QueryResult = result.Shaped[[]result.Item]

// Description summarizes a collection.
type Description = collectionuc.Description

// Version is a four-part engine version.
type Version = version.Version

// ServerInfo identifies the connected backend engine.
type ServerInfo struct {
	Engine  string
	Version Version
}

// Database is a database entry of a tenant.
type Database struct {
	Name      string
	Tenant    string
	CreatedAt int64
}

func databaseFromInfo(info db.DatabaseInfo) Database {
	return Database{Name: info.Name, Tenant: info.Tenant, CreatedAt: info.CreatedAt}
}
