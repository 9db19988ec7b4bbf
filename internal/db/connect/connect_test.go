package connect

import (
	"context"
	"testing"

	"github.com/kailas-cloud/seekdb/internal/db/sqlite"
	"github.com/kailas-cloud/seekdb/internal/domain/mode"
)

func TestOpen_Embedded(t *testing.T) {
	b, err := Open(context.Background(), Config{Mode: mode.Embedded, SQLite: sqlite.Config{Path: sqlite.MemoryPath}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	engine, _, err := b.DetectVersion(context.Background())
	if err != nil || engine != "sqlite" {
		t.Errorf("DetectVersion = %q, %v", engine, err)
	}
	if !b.Capabilities().TextSearch {
		t.Error("embedded backend lost full-text search")
	}
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown mode", Config{Mode: "cluster"}},
		{"server without addrs", Config{Mode: mode.Server}},
		{"multi-tenant without dsn", Config{Mode: mode.MultiTenant}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Open(context.Background(), tt.cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
