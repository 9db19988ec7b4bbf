package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/predicate"
)

type recordRow struct {
	Seq       int64           `db:"seq"`
	ID        string          `db:"id"`
	Document  sql.NullString  `db:"document"`
	Metadata  sql.NullString  `db:"metadata"`
	Embedding []byte          `db:"embedding"`
	Distance  sql.NullFloat64 `db:"distance"`
	Score     sql.NullFloat64 `db:"score"`
}

func (s *Store) toRows(in []recordRow, inc db.Include, needVectors bool) ([]db.Row, error) {
	out := make([]db.Row, len(in))
	for i := range in {
		r := &in[i]
		row := db.Row{ID: r.ID, Distance: r.Distance.Float64, Score: r.Score.Float64}
		if inc.Documents && r.Document.Valid {
			doc := r.Document.String
			row.Document = &doc
		}
		if inc.Metadatas && r.Metadata.Valid && r.Metadata.String != "" {
			if err := json.Unmarshal([]byte(r.Metadata.String), &row.Metadata); err != nil {
				return nil, fmt.Errorf("record %s metadata: %w", r.ID, err)
			}
		}
		if (inc.Embeddings || needVectors) && len(r.Embedding) > 0 {
			v, err := s.flavor.DecodeVector(r.Embedding)
			if err != nil {
				return nil, fmt.Errorf("record %s embedding: %w", r.ID, err)
			}
			row.Embedding = v
		}
		out[i] = row
	}
	return out, nil
}

// Query reads rows in native order, or by ascending distance when a vector is set.
func (s *Store) Query(ctx context.Context, q *db.RowQuery) ([]db.Row, error) {
	table := TableName(q.Collection.ID)
	where, args := whereOf(q.Predicate)
	cols := s.flavor.SelectColumns()

	if q.Vector == nil {
		stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY seq", cols, table, where) +
			s.limitClause(q.Limit, q.Offset)
		return s.selectRows(ctx, stmt, args, q.Include, false)
	}

	if expr := s.flavor.DistanceExpr(q.Collection.Distance, len(args)+1); expr != "" {
		args = append(args, s.flavor.EncodeVector(q.Vector))
		stmt := fmt.Sprintf("SELECT %s, %s AS distance FROM %s WHERE %s ORDER BY distance, seq",
			cols, expr, table, where) + s.limitClause(q.Limit, q.Offset)
		return s.selectRows(ctx, stmt, args, q.Include, false)
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY seq", cols, table, where)
	rows, err := s.selectRows(ctx, stmt, args, q.Include, true)
	if err != nil {
		return nil, err
	}
	ranked, err := db.RankByDistance(rows, q.Collection.Distance, q.Vector)
	if err != nil {
		return nil, err
	}
	ranked = db.Window(ranked, q.Limit, q.Offset)
	if !q.Include.Embeddings {
		for i := range ranked {
			ranked[i].Embedding = nil
		}
	}
	return ranked, nil
}

// SearchText ranks rows matching the predicate by relevance to the terms.
// Rows without a lexical match keep score 0 and follow in native order.
func (s *Store) SearchText(ctx context.Context, q *db.TextQuery) ([]db.Row, error) {
	if len(q.Terms) == 0 {
		return s.Query(ctx, &db.RowQuery{
			Collection: q.Collection,
			Predicate:  q.Predicate,
			Limit:      q.Limit,
			Include:    q.Include,
		})
	}
	where, args := whereOf(q.Predicate)
	args = append(args, s.flavor.TextArg(q.Terms))
	stmt := s.flavor.TextSearchSQL(TableName(q.Collection.ID), where, len(args)) +
		" ORDER BY score DESC, seq" + s.limitClause(q.Limit, 0)
	return s.selectRows(ctx, stmt, args, q.Include, false)
}

func (s *Store) selectRows(ctx context.Context, stmt string, args []any, inc db.Include, vectors bool) ([]db.Row, error) {
	var raw []recordRow
	if err := s.db.SelectContext(ctx, &raw, stmt, args...); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return s.toRows(raw, inc, vectors)
}

// Mutate applies all writes in one transaction.
func (s *Store) Mutate(ctx context.Context, m *db.Mutation) error {
	table := TableName(m.Collection.ID)
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for i := range m.Rows {
			w := &m.Rows[i]
			var err error
			if w.Insert {
				err = s.insert(ctx, tx, table, w)
			} else {
				err = s.update(ctx, tx, table, w)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) insert(ctx context.Context, tx *sqlx.Tx, table string, w *db.RowWrite) error {
	meta, err := encodeMetadata(w.Metadata)
	if err != nil {
		return fmt.Errorf("record %s: %w", w.ID, err)
	}
	var vec any
	if w.Embedding != nil {
		vec = s.flavor.EncodeVector(w.Embedding)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (id, document, embedding, metadata) VALUES (%s, %s, %s, %s)",
		table, s.flavor.Param(1), s.flavor.Param(2), s.flavor.VectorParam(3), s.flavor.JSONParam(4))
	if _, err := tx.ExecContext(ctx, stmt, w.ID, documentArg(w.Document), vec, meta); err != nil {
		if s.flavor.IsUniqueViolation(err) {
			return fmt.Errorf("record %s: %w", w.ID, db.ErrKeyExists)
		}
		return &db.Error{Op: db.OpInsert, Err: err}
	}
	return nil
}

func (s *Store) update(ctx context.Context, tx *sqlx.Tx, table string, w *db.RowWrite) error {
	var sets []string
	var args []any
	if w.Document != nil {
		args = append(args, documentArg(w.Document))
		sets = append(sets, "document = "+s.flavor.Param(len(args)))
	}
	if w.Embedding != nil {
		args = append(args, s.flavor.EncodeVector(w.Embedding))
		sets = append(sets, "embedding = "+s.flavor.VectorParam(len(args)))
	}
	if w.SetMetadata {
		meta, err := encodeMetadata(w.Metadata)
		if err != nil {
			return fmt.Errorf("record %s: %w", w.ID, err)
		}
		args = append(args, meta)
		sets = append(sets, "metadata = "+s.flavor.JSONParam(len(args)))
	}
	if len(sets) == 0 {
		// Nothing to change; the row must still exist.
		sets = append(sets, "id = id")
	}
	args = append(args, w.ID)
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s", table, strings.Join(sets, ", "), s.flavor.Param(len(args)))
	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return &db.Error{Op: db.OpUpdate, Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record %s: %w", w.ID, db.ErrKeyNotFound)
	}
	return nil
}

// Delete removes matching rows.
func (s *Store) Delete(ctx context.Context, ref *db.CollectionRef, p *predicate.Predicate) (int, error) {
	where, args := whereOf(p)
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", TableName(ref.ID), where)
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, &db.Error{Op: db.OpDelete, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &db.Error{Op: db.OpDelete, Err: err}
	}
	return int(n), nil
}

// ExistingIDs reports which ids have a stored row.
func (s *Store) ExistingIDs(ctx context.Context, ref *db.CollectionRef, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	b := &predicate.Builder{}
	clause := s.flavor.IDs(b, ids)
	var found []string
	stmt := fmt.Sprintf("SELECT id FROM %s WHERE %s", TableName(ref.ID), clause)
	if err := s.db.SelectContext(ctx, &found, stmt, b.Args()...); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context, ref *db.CollectionRef) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+TableName(ref.ID)); err != nil {
		return 0, &db.Error{Op: db.OpSelect, Err: err}
	}
	return n, nil
}

func documentArg(doc *string) any {
	if doc == nil || *doc == "" {
		return nil
	}
	return *doc
}

func encodeMetadata(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}
