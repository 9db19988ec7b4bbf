package seekdb

import (
	"context"
	"errors"
	"testing"
)

func TestAdminClient(t *testing.T) {
	admin := newTestClient(t).Admin()
	ctx := context.Background()

	if err := admin.CreateDatabase(ctx, "analytics"); err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	if err := admin.CreateDatabase(ctx, "analytics"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := admin.GetDatabase(ctx, "analytics")
	if err != nil {
		t.Fatalf("GetDatabase: %v", err)
	}
	if got.Name != "analytics" || got.Tenant != "default_tenant" {
		t.Errorf("database = %+v", got)
	}

	dbs, err := admin.ListDatabases(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListDatabases: %v", err)
	}
	if len(dbs) != 2 || dbs[0].Name != "analytics" || dbs[1].Name != "default_database" {
		t.Errorf("databases = %+v", dbs)
	}
	page, err := admin.ListDatabases(ctx, 1, 1)
	if err != nil || len(page) != 1 || page[0].Name != "default_database" {
		t.Errorf("page = %+v, %v", page, err)
	}

	if err := admin.DeleteDatabase(ctx, "analytics"); err != nil {
		t.Fatalf("DeleteDatabase: %v", err)
	}
	if _, err := admin.GetDatabase(ctx, "analytics"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAdminClient_Errors(t *testing.T) {
	admin := newTestClient(t).Admin()
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"invalid name", func() error { return admin.CreateDatabase(ctx, "a/b") }, ErrInvalidArgument},
		{"delete missing", func() error { return admin.DeleteDatabase(ctx, "missing") }, ErrNotFound},
		{"negative limit", func() error { _, err := admin.ListDatabases(ctx, -1, 0); return err }, ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
