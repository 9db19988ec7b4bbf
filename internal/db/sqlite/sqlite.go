// Package sqlite provides the embedded backend: a single-process SQLite
// file with FTS5 text search and exact nearest-neighbour scans.
package sqlite

import (
	"context"
	"database/sql/driver"
	"fmt"
	"regexp"
	"sync"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"

	"github.com/kailas-cloud/seekdb/internal/db/sqlstore"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Config holds the database location.
type Config struct {
	Path string
}

var patterns sync.Map // pattern -> *regexp.Regexp

func init() {
	// X REGEXP Y calls regexp(Y, X).
	sqlite.MustRegisterDeterministicScalarFunction("regexp", 2,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			pattern, ok := args[0].(string)
			if !ok {
				return nil, nil
			}
			var text string
			switch v := args[1].(type) {
			case string:
				text = v
			case []byte:
				text = string(v)
			default:
				return nil, nil
			}
			re, err := compile(pattern)
			if err != nil {
				return nil, err
			}
			if re.MatchString(text) {
				return int64(1), nil
			}
			return int64(0), nil
		})
}

func compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("regexp %q: %w", pattern, err)
	}
	patterns.Store(pattern, re)
	return re, nil
}

// Open opens (creating if needed) the database at cfg.Path and migrates the catalog.
func Open(ctx context.Context, cfg Config) (*sqlstore.Store, error) {
	path := cfg.Path
	if path == "" {
		path = MemoryPath
	}
	dsn := path + "?_pragma=busy_timeout(5000)"
	if path != MemoryPath {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database is private to its connection.
	conn.SetMaxOpenConns(1)

	store := sqlstore.New(conn, Dialect{})
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
