package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/domain/version"
	"github.com/kailas-cloud/seekdb/internal/predicate"
)

// Compile-time check: Store implements db.Backend.
var _ db.Backend = (*Store)(nil)

// Store implements db.Backend over an SQL engine.
type Store struct {
	db     *sqlx.DB
	flavor Flavor
	caps   db.Capabilities
}

// New wraps an open connection pool. Call Migrate before use.
func New(conn *sqlx.DB, f Flavor) *Store {
	return &Store{
		db:     conn,
		flavor: f,
		caps:   db.Capabilities{TextSearch: true, Regex: f.SupportsRegex()},
	}
}

// DB exposes the underlying pool.
func (s *Store) DB() *sqlx.DB { return s.db }

// Migrate creates the catalog tables when absent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.flavor.CatalogDDL() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &db.Error{Op: db.OpMigrate, Err: err}
		}
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Dialect returns the flavor's predicate dialect.
func (s *Store) Dialect() predicate.Dialect { return s.flavor }

// Capabilities reports text search and regex support.
func (s *Store) Capabilities() db.Capabilities { return s.caps }

// DetectVersion reports the engine name and server version.
func (s *Store) DetectVersion(ctx context.Context) (string, version.Version, error) {
	var raw string
	if err := s.db.GetContext(ctx, &raw, s.flavor.VersionQuery()); err != nil {
		return "", version.Version{}, &db.Error{Op: db.OpSelect, Err: err}
	}
	v, err := version.Extract(raw)
	if err != nil {
		return "", version.Version{}, fmt.Errorf("%s version %q: %w", s.flavor.Engine(), raw, err)
	}
	return s.flavor.Engine(), v, nil
}

// TableName returns the record table of a collection id.
func TableName(collectionID string) string {
	return "seekdb_c_" + strings.ReplaceAll(collectionID, "-", "")
}

func whereOf(p *predicate.Predicate) (string, []any) {
	if p == nil || p.Clause == "" {
		return "1=1", nil
	}
	args := make([]any, len(p.Args))
	copy(args, p.Args)
	return p.Clause, args
}
