// Package sqlstore implements db.Backend over database/sql for the SQL
// backends. Engine differences live behind Flavor.
package sqlstore

import "github.com/kailas-cloud/seekdb/internal/predicate"

// Flavor adapts the shared SQL store to one engine.
type Flavor interface {
	predicate.Dialect

	// Engine names the engine for version reports.
	Engine() string
	// Param renders placeholder n (1-based).
	Param(n int) string
	// JSONParam and VectorParam render placeholder n with the cast the
	// engine needs for metadata and embedding values.
	JSONParam(n int) string
	VectorParam(n int) string
	// NoLimit is the LIMIT operand meaning "all rows".
	NoLimit() string

	// CatalogDDL creates the catalog and kv tables.
	CatalogDDL() []string
	// RecordsDDL creates the record storage of one collection.
	RecordsDDL(table string, dim int, metric string) []string
	// DropRecordsDDL removes it.
	DropRecordsDDL(table string) []string
	// SelectColumns lists seq, id, document, metadata and embedding in a
	// form scannable into text and bytes.
	SelectColumns() string

	EncodeVector(v []float32) any
	DecodeVector(b []byte) ([]float32, error)
	// DistanceExpr returns an SQL expression computing the distance to the
	// vector bound at placeholder n, or "" when distances are computed in Go.
	DistanceExpr(metric string, n int) string

	// TextSearchSQL returns a query selecting the columns plus a "score"
	// column, filtered by where and ranked by relevance to the terms bound
	// at placeholder n. The caller appends ORDER/LIMIT clauses.
	TextSearchSQL(table, where string, n int) string
	// TextArg encodes the search terms for TextSearchSQL.
	TextArg(terms []string) any

	VersionQuery() string
	IsUniqueViolation(err error) bool
}
