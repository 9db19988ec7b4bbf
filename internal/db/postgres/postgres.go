// Package postgres provides the multi-tenant backend on PostgreSQL with
// the pgvector extension.
package postgres

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"

	"github.com/kailas-cloud/seekdb/internal/db/sqlstore"
)

// Config holds connection parameters.
type Config struct {
	DSN          string
	MaxOpenConns int
}

// Open connects to PostgreSQL and migrates the catalog.
func Open(ctx context.Context, cfg Config) (*sqlstore.Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	conn, err := sqlx.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxOpen / 2)
	conn.SetConnMaxLifetime(time.Hour)

	store := sqlstore.New(conn, Dialect{})
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
