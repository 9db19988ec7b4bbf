package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/db/sqlstore"
	"github.com/kailas-cloud/seekdb/internal/domain/collection/field"
	"github.com/kailas-cloud/seekdb/internal/domain/search/filter"
	"github.com/kailas-cloud/seekdb/internal/predicate"
)

var _ sqlstore.Flavor = Dialect{}

const uniqueViolation = "23505"

// Dialect renders predicates and DDL for PostgreSQL with pgvector.
// Metadata is a JSONB column; numeric comparisons cast only number values.
type Dialect struct{}

func (Dialect) Name() string                 { return "postgres" }
func (Dialect) SupportsRegex() bool          { return true }
func (Dialect) RequiresDeclaredFields() bool { return false }

var sqlOps = map[filter.Op]string{
	filter.Eq: "=", filter.Ne: "<>",
	filter.Gt: ">", filter.Gte: ">=",
	filter.Lt: "<", filter.Lte: "<=",
}

var jsonTypes = map[field.Family]string{
	field.Numeric: "number",
	field.String:  "string",
	field.Bool:    "boolean",
}

// operand returns the expression a comparison of family fam is made on.
// Non-matching JSON types yield NULL so they never compare true.
func operand(name string, fam field.Family) string {
	if fam == field.Numeric {
		return fmt.Sprintf("CASE WHEN jsonb_typeof(metadata->'%[1]s') = 'number' THEN (metadata->>'%[1]s')::float8 END", name)
	}
	return fmt.Sprintf("CASE WHEN jsonb_typeof(metadata->'%[1]s') = '%[2]s' THEN metadata->>'%[1]s' END", name, jsonTypes[fam])
}

func scalar(v filter.Value) any {
	if v.Family() == field.Bool {
		return boolText(v.Bool())
	}
	return v.Any()
}

func boolText(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func cast(fam field.Family) string {
	if fam == field.Numeric {
		return "float8"
	}
	return "text"
}

// Compare renders a scalar comparison.
func (Dialect) Compare(b *predicate.Builder, name string, op filter.Op, v filter.Value) string {
	return fmt.Sprintf("%s %s $%d::%s", operand(name, v.Family()), sqlOps[op], b.Bind(scalar(v)), cast(v.Family()))
}

// Set renders $in as = ANY and $nin as <> ALL over a typed array.
func (Dialect) Set(b *predicate.Builder, name string, op filter.Op, vs []filter.Value) string {
	fam := vs[0].Family()
	var arg any
	if fam == field.Numeric {
		nums := make([]float64, len(vs))
		for i, v := range vs {
			nums[i] = v.Num()
		}
		arg = nums
	} else {
		strs := make([]string, len(vs))
		for i, v := range vs {
			strs[i], _ = scalar(v).(string)
		}
		arg = strs
	}
	quant := "= ANY"
	if op == filter.Nin {
		quant = "<> ALL"
	}
	return fmt.Sprintf("%s %s($%d::%s[])", operand(name, fam), quant, b.Bind(arg), cast(fam))
}

// Contains renders a case-sensitive substring match on the document.
func (Dialect) Contains(b *predicate.Builder, s string) string {
	return fmt.Sprintf("strpos(document, $%d::text) > 0", b.Bind(s))
}

// Regex renders a POSIX regular expression match on the document.
func (Dialect) Regex(b *predicate.Builder, p string) string {
	return fmt.Sprintf("document ~ $%d::text", b.Bind(p))
}

// IDs renders an id membership test.
func (Dialect) IDs(b *predicate.Builder, ids []string) string {
	return fmt.Sprintf("id = ANY($%d::text[])", b.Bind(ids))
}

// Join combines fragments with AND / OR.
func (Dialect) Join(op filter.LogicalOp, parts []string) string {
	sep := " AND "
	if op == filter.Or {
		sep = " OR "
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func (Dialect) Engine() string               { return "postgres" }
func (Dialect) Param(n int) string           { return fmt.Sprintf("$%d", n) }
func (Dialect) JSONParam(n int) string       { return fmt.Sprintf("$%d::jsonb", n) }
func (Dialect) VectorParam(n int) string     { return fmt.Sprintf("$%d::vector", n) }
func (Dialect) NoLimit() string              { return "ALL" }
func (Dialect) SelectColumns() string        { return selectColumns }
func (Dialect) VersionQuery() string         { return "SHOW server_version" }
func (Dialect) EncodeVector(v []float32) any { return db.FormatVector(v) }

const selectColumns = "seq, id, document, metadata::text AS metadata, embedding::text AS embedding"

// DecodeVector parses pgvector's text output.
func (Dialect) DecodeVector(b []byte) ([]float32, error) { return db.ParseVector(string(b)) }

// CatalogDDL enables pgvector and creates the catalog and kv tables.
func (Dialect) CatalogDDL() []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS seekdb_databases (
			tenant TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			PRIMARY KEY (tenant, name))`,
		`CREATE TABLE IF NOT EXISTS seekdb_collections (
			tenant TEXT NOT NULL,
			database_name TEXT NOT NULL,
			name TEXT NOT NULL,
			id TEXT NOT NULL UNIQUE,
			dimension INTEGER NOT NULL,
			distance TEXT NOT NULL,
			metadata TEXT,
			fields TEXT,
			created_at BIGINT NOT NULL,
			PRIMARY KEY (tenant, database_name, name))`,
		`CREATE TABLE IF NOT EXISTS seekdb_kv (
			k TEXT PRIMARY KEY,
			v BYTEA,
			expires_at BIGINT NOT NULL DEFAULT 0)`,
	}
}

var opClasses = map[string]string{
	db.MetricCosine: "vector_cosine_ops",
	db.MetricL2:     "vector_l2_ops",
	db.MetricIP:     "vector_ip_ops",
}

// RecordsDDL creates the record table with a generated tsvector column,
// a GIN text index and an HNSW vector index for the collection's metric.
func (Dialect) RecordsDDL(table string, dim int, metric string) []string {
	ops, ok := opClasses[metric]
	if !ok {
		ops = opClasses[db.MetricCosine]
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE %s (
			seq BIGSERIAL PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			document TEXT,
			embedding vector(%d),
			metadata JSONB,
			tsv tsvector GENERATED ALWAYS AS (to_tsvector('simple', COALESCE(document, ''))) STORED)`, table, dim),
		fmt.Sprintf(`CREATE INDEX %[1]s_tsv ON %[1]s USING GIN (tsv)`, table),
		fmt.Sprintf(`CREATE INDEX %[1]s_hnsw ON %[1]s USING hnsw (embedding %[2]s)`, table, ops),
	}
}

// DropRecordsDDL drops the record table with its indexes.
func (Dialect) DropRecordsDDL(table string) []string {
	return []string{"DROP TABLE IF EXISTS " + table}
}

// DistanceExpr maps the metric onto pgvector operators; inner product is
// shifted to 1 - dot so lower is closer for every metric.
func (Dialect) DistanceExpr(metric string, n int) string {
	switch metric {
	case db.MetricL2:
		return fmt.Sprintf("(embedding <-> $%d::vector)", n)
	case db.MetricIP:
		return fmt.Sprintf("(1 + (embedding <#> $%d::vector))", n)
	default:
		return fmt.Sprintf("(embedding <=> $%d::vector)", n)
	}
}

// TextSearchSQL ranks filtered rows with ts_rank over the generated tsvector.
func (Dialect) TextSearchSQL(table, where string, n int) string {
	return fmt.Sprintf(`SELECT %s, ts_rank(tsv, websearch_to_tsquery('simple', $%d)) AS score FROM %s WHERE %s`,
		selectColumns, n, table, where)
}

// TextArg ORs the terms as websearch phrases.
func (Dialect) TextArg(terms []string) any {
	phrases := make([]string, len(terms))
	for i, t := range terms {
		phrases[i] = `"` + strings.ReplaceAll(t, `"`, " ") + `"`
	}
	return strings.Join(phrases, " or ")
}

// IsUniqueViolation reports unique_violation errors.
func (Dialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
