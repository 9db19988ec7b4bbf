package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/seekdb/internal/db"
)

type kvRow struct {
	Value     []byte `db:"v"`
	ExpiresAt int64  `db:"expires_at"`
}

// Get returns a live value; expired keys read as missing.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	q := fmt.Sprintf("SELECT v, expires_at FROM seekdb_kv WHERE k = %s", s.flavor.Param(1))
	var row kvRow
	if err := s.db.GetContext(ctx, &row, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	if row.ExpiresAt > 0 && row.ExpiresAt <= time.Now().UnixMilli() {
		return nil, db.ErrKeyNotFound
	}
	return row.Value, nil
}

// SetWithTTL stores a value; ttl <= 0 never expires.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires int64
	if ttl > 0 {
		expires = time.Now().Add(ttl).UnixMilli()
	}
	q := fmt.Sprintf(`INSERT INTO seekdb_kv (k, v, expires_at) VALUES (%s, %s, %s)
		ON CONFLICT (k) DO UPDATE SET v = excluded.v, expires_at = excluded.expires_at`,
		s.flavor.Param(1), s.flavor.Param(2), s.flavor.Param(3))
	if _, err := s.db.ExecContext(ctx, q, key, value, expires); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}
