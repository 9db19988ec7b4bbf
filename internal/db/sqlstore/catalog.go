package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"

	"github.com/kailas-cloud/seekdb/internal/db"
)

type databaseRow struct {
	Tenant    string `db:"tenant"`
	Name      string `db:"name"`
	CreatedAt int64  `db:"created_at"`
}

type collectionRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Dimension int            `db:"dimension"`
	Distance  string         `db:"distance"`
	Metadata  sql.NullString `db:"metadata"`
	Fields    sql.NullString `db:"fields"`
	CreatedAt int64          `db:"created_at"`
}

func (r *collectionRow) info() (db.CollectionInfo, error) {
	info := db.CollectionInfo{
		ID:        r.ID,
		Name:      r.Name,
		Dimension: r.Dimension,
		Distance:  r.Distance,
		CreatedAt: r.CreatedAt,
		Fields:    map[string]string{},
	}
	if r.Metadata.Valid && r.Metadata.String != "" {
		if err := json.Unmarshal([]byte(r.Metadata.String), &info.Metadata); err != nil {
			return db.CollectionInfo{}, fmt.Errorf("collection %s metadata: %w", r.Name, err)
		}
	}
	if r.Fields.Valid && r.Fields.String != "" {
		if err := json.Unmarshal([]byte(r.Fields.String), &info.Fields); err != nil {
			return db.CollectionInfo{}, fmt.Errorf("collection %s fields: %w", r.Name, err)
		}
	}
	return info, nil
}

const collectionColumns = "id, name, dimension, distance, metadata, fields, created_at"

// CreateDatabase inserts a database entry.
func (s *Store) CreateDatabase(ctx context.Context, tenant, name string) error {
	q := fmt.Sprintf("INSERT INTO seekdb_databases (tenant, name, created_at) VALUES (%s, %s, %s)",
		s.flavor.Param(1), s.flavor.Param(2), s.flavor.Param(3))
	if _, err := s.db.ExecContext(ctx, q, tenant, name, time.Now().UnixMilli()); err != nil {
		if s.flavor.IsUniqueViolation(err) {
			return fmt.Errorf("database %s: %w", name, db.ErrKeyExists)
		}
		return &db.Error{Op: db.OpInsert, Err: err}
	}
	return nil
}

// GetDatabase loads a database entry.
func (s *Store) GetDatabase(ctx context.Context, tenant, name string) (db.DatabaseInfo, error) {
	q := fmt.Sprintf("SELECT tenant, name, created_at FROM seekdb_databases WHERE tenant = %s AND name = %s",
		s.flavor.Param(1), s.flavor.Param(2))
	var row databaseRow
	if err := s.db.GetContext(ctx, &row, q, tenant, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.DatabaseInfo{}, fmt.Errorf("database %s: %w", name, db.ErrKeyNotFound)
		}
		return db.DatabaseInfo{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	return db.DatabaseInfo(row), nil
}

// DeleteDatabase removes a database with all of its collections.
func (s *Store) DeleteDatabase(ctx context.Context, tenant, name string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		q := fmt.Sprintf("DELETE FROM seekdb_databases WHERE tenant = %s AND name = %s",
			s.flavor.Param(1), s.flavor.Param(2))
		res, err := tx.ExecContext(ctx, q, tenant, name)
		if err != nil {
			return &db.Error{Op: db.OpDelete, Err: err}
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("database %s: %w", name, db.ErrKeyNotFound)
		}

		var ids []string
		q = fmt.Sprintf("SELECT id FROM seekdb_collections WHERE tenant = %s AND database_name = %s",
			s.flavor.Param(1), s.flavor.Param(2))
		if err := tx.SelectContext(ctx, &ids, q, tenant, name); err != nil {
			return &db.Error{Op: db.OpSelect, Err: err}
		}
		for _, id := range ids {
			if err := s.dropRecords(ctx, tx, id); err != nil {
				return err
			}
		}
		q = fmt.Sprintf("DELETE FROM seekdb_collections WHERE tenant = %s AND database_name = %s",
			s.flavor.Param(1), s.flavor.Param(2))
		if _, err := tx.ExecContext(ctx, q, tenant, name); err != nil {
			return &db.Error{Op: db.OpDelete, Err: err}
		}
		return nil
	})
}

// ListDatabases returns a tenant's databases ordered by name.
func (s *Store) ListDatabases(ctx context.Context, tenant string, limit, offset int) ([]db.DatabaseInfo, error) {
	q := fmt.Sprintf("SELECT tenant, name, created_at FROM seekdb_databases WHERE tenant = %s ORDER BY name",
		s.flavor.Param(1))
	var rows []databaseRow
	if err := s.db.SelectContext(ctx, &rows, q+s.limitClause(limit, offset), tenant); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	out := make([]db.DatabaseInfo, len(rows))
	for i, r := range rows {
		out[i] = db.DatabaseInfo(r)
	}
	return out, nil
}

// CreateCollection stores a collection definition and creates its record storage.
func (s *Store) CreateCollection(ctx context.Context, scope db.Scope, info *db.CollectionInfo) error {
	meta, fields, err := encodeDefinition(info.Metadata, info.Fields)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		q := fmt.Sprintf(`INSERT INTO seekdb_collections
			(tenant, database_name, name, id, dimension, distance, metadata, fields, created_at)
			VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`,
			s.flavor.Param(1), s.flavor.Param(2), s.flavor.Param(3), s.flavor.Param(4), s.flavor.Param(5),
			s.flavor.Param(6), s.flavor.Param(7), s.flavor.Param(8), s.flavor.Param(9))
		_, err := tx.ExecContext(ctx, q, scope.Tenant, scope.Database, info.Name, info.ID,
			info.Dimension, info.Distance, meta, fields, info.CreatedAt)
		if err != nil {
			if s.flavor.IsUniqueViolation(err) {
				return fmt.Errorf("collection %s: %w", info.Name, db.ErrKeyExists)
			}
			return &db.Error{Op: db.OpInsert, Err: err}
		}
		for _, stmt := range s.flavor.RecordsDDL(TableName(info.ID), info.Dimension, info.Distance) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return &db.Error{Op: db.OpCreate, Err: err}
			}
		}
		return nil
	})
}

// GetCollection loads a collection definition by name.
func (s *Store) GetCollection(ctx context.Context, scope db.Scope, name string) (db.CollectionInfo, error) {
	q := fmt.Sprintf("SELECT %s FROM seekdb_collections WHERE tenant = %s AND database_name = %s AND name = %s",
		collectionColumns, s.flavor.Param(1), s.flavor.Param(2), s.flavor.Param(3))
	var row collectionRow
	if err := s.db.GetContext(ctx, &row, q, scope.Tenant, scope.Database, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.CollectionInfo{}, fmt.Errorf("collection %s: %w", name, db.ErrKeyNotFound)
		}
		return db.CollectionInfo{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	return row.info()
}

// ListCollections returns the collections of a database ordered by name.
func (s *Store) ListCollections(ctx context.Context, scope db.Scope) ([]db.CollectionInfo, error) {
	q := fmt.Sprintf("SELECT %s FROM seekdb_collections WHERE tenant = %s AND database_name = %s ORDER BY name",
		collectionColumns, s.flavor.Param(1), s.flavor.Param(2))
	var rows []collectionRow
	if err := s.db.SelectContext(ctx, &rows, q, scope.Tenant, scope.Database); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	out := make([]db.CollectionInfo, 0, len(rows))
	for i := range rows {
		info, err := rows[i].info()
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// DeleteCollection drops a collection and its records.
func (s *Store) DeleteCollection(ctx context.Context, scope db.Scope, name string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var id string
		q := fmt.Sprintf("SELECT id FROM seekdb_collections WHERE tenant = %s AND database_name = %s AND name = %s",
			s.flavor.Param(1), s.flavor.Param(2), s.flavor.Param(3))
		if err := tx.GetContext(ctx, &id, q, scope.Tenant, scope.Database, name); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("collection %s: %w", name, db.ErrKeyNotFound)
			}
			return &db.Error{Op: db.OpSelect, Err: err}
		}
		q = fmt.Sprintf("DELETE FROM seekdb_collections WHERE id = %s", s.flavor.Param(1))
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return &db.Error{Op: db.OpDelete, Err: err}
		}
		return s.dropRecords(ctx, tx, id)
	})
}

// AddFields merges new metadata fields into the stored schema.
func (s *Store) AddFields(ctx context.Context, ref *db.CollectionRef, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var raw sql.NullString
		q := fmt.Sprintf("SELECT fields FROM seekdb_collections WHERE id = %s", s.flavor.Param(1))
		if err := tx.GetContext(ctx, &raw, q, ref.ID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("collection %s: %w", ref.Name, db.ErrKeyNotFound)
			}
			return &db.Error{Op: db.OpSelect, Err: err}
		}
		merged := map[string]string{}
		if raw.Valid && raw.String != "" {
			if err := json.Unmarshal([]byte(raw.String), &merged); err != nil {
				return fmt.Errorf("collection %s fields: %w", ref.Name, err)
			}
		}
		maps.Copy(merged, fields)
		b, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encode fields: %w", err)
		}
		q = fmt.Sprintf("UPDATE seekdb_collections SET fields = %s WHERE id = %s", s.flavor.Param(1), s.flavor.Param(2))
		if _, err := tx.ExecContext(ctx, q, string(b), ref.ID); err != nil {
			return &db.Error{Op: db.OpUpdate, Err: err}
		}
		return nil
	})
}

func (s *Store) dropRecords(ctx context.Context, tx *sqlx.Tx, id string) error {
	for _, stmt := range s.flavor.DropRecordsDDL(TableName(id)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return &db.Error{Op: db.OpDrop, Err: err}
		}
	}
	return nil
}

func encodeDefinition(metadata map[string]any, fields map[string]string) (meta, flds any, err error) {
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("encode collection metadata: %w", err)
		}
		meta = string(b)
	}
	if fields == nil {
		fields = map[string]string{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, nil, fmt.Errorf("encode fields: %w", err)
	}
	return meta, string(b), nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &db.Error{Op: db.OpTx, Err: err}
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return &db.Error{Op: db.OpTx, Err: err}
	}
	return nil
}

func (s *Store) limitClause(limit, offset int) string {
	switch {
	case limit > 0 && offset > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	case offset > 0:
		return fmt.Sprintf(" LIMIT %s OFFSET %d", s.flavor.NoLimit(), offset)
	}
	return ""
}
