package collection

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/domain/collection/field"
)

func makeField(t *testing.T, name string, fam field.Family) field.Field {
	t.Helper()
	f, err := field.New(name, fam)
	if err != nil {
		t.Fatalf("field.New(%q, %q): %v", name, fam, err)
	}
	return f
}

func TestNew_Valid(t *testing.T) {
	f := makeField(t, "language", field.String)
	before := time.Now().UnixMilli()

	col, err := New("my-collection", Configuration{Dimension: 3}, map[string]any{"owner": "ops"}, []field.Field{f})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after := time.Now().UnixMilli()

	if col.Name() != "my-collection" {
		t.Errorf("Name() = %q", col.Name())
	}
	if col.ID() == "" {
		t.Error("ID() is empty")
	}
	if col.Dimension() != 3 {
		t.Errorf("Dimension() = %d, want 3", col.Dimension())
	}
	if col.Distance() != Cosine {
		t.Errorf("Distance() = %q, want default cosine", col.Distance())
	}
	if col.Metadata()["owner"] != "ops" {
		t.Errorf("Metadata() = %v", col.Metadata())
	}
	if col.CreatedAt() < before || col.CreatedAt() > after {
		t.Errorf("CreatedAt() = %d, want between %d and %d", col.CreatedAt(), before, after)
	}
	if col.Binding().HasFunction() {
		t.Error("new collection should have no bound function")
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		colName string
		cfg     Configuration
		wantErr string
	}{
		{"empty name", "", DefaultConfiguration(), "required"},
		{"long name", strings.Repeat("x", 65), DefaultConfiguration(), "too long"},
		{"bad chars", "has space", DefaultConfiguration(), "alphanumeric"},
		{"zero dimension", "ok", Configuration{}, "positive"},
		{"bad distance", "ok", Configuration{Dimension: 3, Distance: "manhattan"}, "distance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.colName, tt.cfg, nil, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestNew_DuplicateFields(t *testing.T) {
	f := makeField(t, "lang", field.String)
	if _, err := New("c", DefaultConfiguration(), nil, []field.Field{f, f}); err == nil {
		t.Fatal("expected duplicate field error")
	}
}

func TestBind_DoesNotMutateReceiver(t *testing.T) {
	col, _ := New("c", Configuration{Dimension: 2}, nil, nil)
	fn := domain.EmbeddingFunc(func(context.Context, []string) ([][]float32, error) { return nil, nil })

	bound := col.Bind(fn)
	if !bound.Binding().HasFunction() {
		t.Error("expected bound function")
	}
	if bound.Binding().Dimension() != 2 {
		t.Errorf("binding dimension = %d", bound.Binding().Dimension())
	}
	if col.Binding().HasFunction() {
		t.Error("receiver was mutated")
	}
}

func TestInferFields(t *testing.T) {
	col, _ := New("c", DefaultConfiguration(), nil, []field.Field{makeField(t, "score", field.Numeric)})

	added, err := col.InferFields([]map[string]any{
		{"score": 10, "lang": "go"},
		{"active": true, "lang": "rust", "not a key": "kept"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(added) != 2 {
		t.Fatalf("added = %v, want active and lang", added)
	}
	if added[0].Name() != "active" || added[0].Family() != field.Bool {
		t.Errorf("added[0] = %s/%s", added[0].Name(), added[0].Family())
	}
	if added[1].Name() != "lang" || added[1].Family() != field.String {
		t.Errorf("added[1] = %s/%s", added[1].Name(), added[1].Family())
	}

	extended := col.WithFields(added)
	if _, ok := extended.FieldByName("lang"); !ok {
		t.Error("expected lang after WithFields")
	}
	if _, ok := col.FieldByName("lang"); ok {
		t.Error("receiver was mutated")
	}
}

func TestInferFields_Conflict(t *testing.T) {
	col, _ := New("c", DefaultConfiguration(), nil, []field.Field{makeField(t, "score", field.Numeric)})

	_, err := col.InferFields([]map[string]any{{"score": "high"}})
	if !errors.Is(err, domain.ErrSchemaConflict) {
		t.Errorf("expected ErrSchemaConflict, got %v", err)
	}

	_, err = col.InferFields([]map[string]any{{"a": 1}, {"a": "x"}})
	if !errors.Is(err, domain.ErrSchemaConflict) {
		t.Errorf("expected ErrSchemaConflict within batch, got %v", err)
	}

	_, err = col.InferFields([]map[string]any{{"tags": []string{"x"}}})
	if !errors.Is(err, domain.ErrSchemaConflict) {
		t.Errorf("expected ErrSchemaConflict for list value, got %v", err)
	}
}

func TestReconstruct(t *testing.T) {
	col := Reconstruct("id-1", "docs", Configuration{Dimension: 8}, nil, nil, 42)
	if col.ID() != "id-1" || col.CreatedAt() != 42 {
		t.Errorf("got id=%q createdAt=%d", col.ID(), col.CreatedAt())
	}
	if col.Distance() != DefaultDistance {
		t.Errorf("Distance() = %q", col.Distance())
	}
}
