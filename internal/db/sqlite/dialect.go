package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/db/sqlstore"
	"github.com/kailas-cloud/seekdb/internal/domain/collection/field"
	"github.com/kailas-cloud/seekdb/internal/domain/search/filter"
	"github.com/kailas-cloud/seekdb/internal/predicate"
)

var _ sqlstore.Flavor = Dialect{}

// Dialect renders predicates and DDL for SQLite. Metadata is stored as a
// JSON text column and addressed through json_extract.
type Dialect struct{}

// Name identifies the dialect in error messages.
func (Dialect) Name() string { return "sqlite" }

// SupportsRegex is true: REGEXP is registered as a scalar function.
func (Dialect) SupportsRegex() bool { return true }

// RequiresDeclaredFields is false: any metadata key can be filtered.
func (Dialect) RequiresDeclaredFields() bool { return false }

func path(name string) string { return "'$." + name + "'" }

func extract(name string) string { return "json_extract(metadata, " + path(name) + ")" }

// typeGuard restricts a comparison to rows whose value has the operand's family,
// so missing keys and foreign types never match.
func typeGuard(name string, fam field.Family) string {
	jt := "json_type(metadata, " + path(name) + ")"
	switch fam {
	case field.Numeric:
		return jt + " IN ('integer', 'real')"
	case field.Bool:
		return jt + " IN ('true', 'false')"
	default:
		return jt + " = 'text'"
	}
}

var sqlOps = map[filter.Op]string{
	filter.Eq: "=", filter.Ne: "<>",
	filter.Gt: ">", filter.Gte: ">=",
	filter.Lt: "<", filter.Lte: "<=",
}

// Compare renders a scalar comparison.
func (Dialect) Compare(b *predicate.Builder, name string, op filter.Op, v filter.Value) string {
	if v.Family() == field.Bool {
		// json_type distinguishes true/false from the integers 1/0.
		return fmt.Sprintf("(%s AND json_type(metadata, %s) %s ?%d)",
			typeGuard(name, field.Bool), path(name), sqlOps[op], b.Bind(boolType(v.Bool())))
	}
	return fmt.Sprintf("(%s AND %s %s ?%d)", typeGuard(name, v.Family()), extract(name), sqlOps[op], b.Bind(v.Any()))
}

// Set renders $in / $nin.
func (Dialect) Set(b *predicate.Builder, name string, op filter.Op, vs []filter.Value) string {
	not := ""
	if op == filter.Nin {
		not = "NOT "
	}
	ph := make([]string, len(vs))
	if vs[0].Family() == field.Bool {
		for i, v := range vs {
			ph[i] = fmt.Sprintf("?%d", b.Bind(boolType(v.Bool())))
		}
		return fmt.Sprintf("(%s AND json_type(metadata, %s) %sIN (%s))",
			typeGuard(name, field.Bool), path(name), not, strings.Join(ph, ", "))
	}
	for i, v := range vs {
		ph[i] = fmt.Sprintf("?%d", b.Bind(v.Any()))
	}
	return fmt.Sprintf("(%s AND %s %sIN (%s))", typeGuard(name, vs[0].Family()), extract(name), not, strings.Join(ph, ", "))
}

func boolType(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// Contains renders a case-sensitive substring match on the document.
func (Dialect) Contains(b *predicate.Builder, s string) string {
	return fmt.Sprintf("instr(document, ?%d) > 0", b.Bind(s))
}

// Regex renders a REGEXP match on the document.
func (Dialect) Regex(b *predicate.Builder, p string) string {
	return fmt.Sprintf("document REGEXP ?%d", b.Bind(p))
}

// IDs renders an id membership test.
func (Dialect) IDs(b *predicate.Builder, ids []string) string {
	ph := make([]string, len(ids))
	for i, id := range ids {
		ph[i] = fmt.Sprintf("?%d", b.Bind(id))
	}
	return "id IN (" + strings.Join(ph, ", ") + ")"
}

// Join combines fragments with AND / OR.
func (Dialect) Join(op filter.LogicalOp, parts []string) string {
	sep := " AND "
	if op == filter.Or {
		sep = " OR "
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// Engine names the engine for version reports.
func (Dialect) Engine() string { return "sqlite" }

// Param renders a numbered placeholder.
func (Dialect) Param(n int) string { return fmt.Sprintf("?%d", n) }

// JSONParam renders a numbered placeholder; metadata is plain text.
func (d Dialect) JSONParam(n int) string { return d.Param(n) }

// VectorParam renders a numbered placeholder; embeddings are blobs.
func (d Dialect) VectorParam(n int) string { return d.Param(n) }

// NoLimit is SQLite's unbounded LIMIT operand.
func (Dialect) NoLimit() string { return "-1" }

// CatalogDDL creates the catalog and kv tables.
func (Dialect) CatalogDDL() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS seekdb_databases (
			tenant TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at INTEGER NOT NULL,
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
			created_at INTEGER NOT NULL,
			PRIMARY KEY (tenant, database_name, name))`,
		`CREATE TABLE IF NOT EXISTS seekdb_kv (
			k TEXT PRIMARY KEY,
			v BLOB,
			expires_at INTEGER NOT NULL DEFAULT 0)`,
	}
}

// RecordsDDL creates the record table and its FTS5 shadow kept in sync by triggers.
func (Dialect) RecordsDDL(table string, _ int, _ string) []string {
	fts := table + "_fts"
	return []string{
		fmt.Sprintf(`CREATE TABLE %s (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			document TEXT,
			embedding BLOB,
			metadata TEXT)`, table),
		fmt.Sprintf(`CREATE VIRTUAL TABLE %s USING fts5(rid UNINDEXED, body)`, fts),
		fmt.Sprintf(`CREATE TRIGGER %[1]s_ai AFTER INSERT ON %[1]s BEGIN
			INSERT INTO %[2]s (rid, body) VALUES (new.id, COALESCE(new.document, ''));
		END`, table, fts),
		fmt.Sprintf(`CREATE TRIGGER %[1]s_ad AFTER DELETE ON %[1]s BEGIN
			DELETE FROM %[2]s WHERE rid = old.id;
		END`, table, fts),
		fmt.Sprintf(`CREATE TRIGGER %[1]s_au AFTER UPDATE OF document ON %[1]s BEGIN
			DELETE FROM %[2]s WHERE rid = old.id;
			INSERT INTO %[2]s (rid, body) VALUES (new.id, COALESCE(new.document, ''));
		END`, table, fts),
	}
}

// DropRecordsDDL drops the record table, its triggers and the FTS5 shadow.
func (Dialect) DropRecordsDDL(table string) []string {
	return []string{
		"DROP TABLE IF EXISTS " + table + "_fts",
		"DROP TABLE IF EXISTS " + table,
	}
}

// SelectColumns lists the record columns.
func (Dialect) SelectColumns() string { return "seq, id, document, metadata, embedding" }

// EncodeVector packs the vector as a little-endian float32 blob.
func (Dialect) EncodeVector(v []float32) any { return db.EncodeVector(v) }

// DecodeVector unpacks a float32 blob.
func (Dialect) DecodeVector(b []byte) ([]float32, error) { return db.DecodeVector(b) }

// DistanceExpr is empty: nearest-neighbour reads scan exactly in Go.
func (Dialect) DistanceExpr(string, int) string { return "" }

// TextSearchSQL left-joins FTS5 bm25 scores onto the filtered rows.
func (Dialect) TextSearchSQL(table, where string, n int) string {
	fts := table + "_fts"
	return fmt.Sprintf(`SELECT r.seq, r.id, r.document, r.metadata, r.embedding, COALESCE(m.score, 0) AS score
		FROM %[1]s AS r
		LEFT JOIN (SELECT rid, -bm25(%[2]s) AS score FROM %[2]s WHERE %[2]s MATCH ?%[3]d) AS m ON m.rid = r.id
		WHERE %[4]s`, table, fts, n, where)
}

// TextArg ORs the terms as quoted FTS5 phrases.
func (Dialect) TextArg(terms []string) any {
	phrases := make([]string, len(terms))
	for i, t := range terms {
		phrases[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(phrases, " OR ")
}

// VersionQuery reports the library version.
func (Dialect) VersionQuery() string { return "SELECT sqlite_version()" }

// IsUniqueViolation reports primary key and unique constraint failures.
func (Dialect) IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
