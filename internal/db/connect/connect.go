// Package connect opens the storage backend of a backend mode.
package connect

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/db/postgres"
	"github.com/kailas-cloud/seekdb/internal/db/redis"
	"github.com/kailas-cloud/seekdb/internal/db/sqlite"
	"github.com/kailas-cloud/seekdb/internal/domain/mode"
)

// DefaultReadinessTimeout bounds the wait for a networked backend.
const DefaultReadinessTimeout = 10 * time.Second

// Config holds the connection parameters of every mode; only the fields of
// the selected mode are used.
type Config struct {
	Mode             mode.BackendMode
	SQLite           sqlite.Config
	Redis            redis.Config
	Postgres         postgres.Config
	ReadinessTimeout time.Duration
}

// Open connects to the backend of cfg.Mode and waits until it answers.
func Open(ctx context.Context, cfg Config) (db.Backend, error) {
	var (
		backend db.Backend
		err     error
	)
	switch cfg.Mode {
	case mode.Embedded:
		backend, err = sqlite.Open(ctx, cfg.SQLite)
	case mode.Server:
		backend, err = redis.NewStore(cfg.Redis)
	case mode.MultiTenant:
		backend, err = postgres.Open(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown backend mode %q", cfg.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Mode, err)
	}

	timeout := cfg.ReadinessTimeout
	if timeout <= 0 {
		timeout = DefaultReadinessTimeout
	}
	if err := backend.WaitForReady(ctx, timeout); err != nil {
		backend.Close()
		return nil, fmt.Errorf("%s backend not ready: %w", cfg.Mode, err)
	}
	return backend, nil
}
