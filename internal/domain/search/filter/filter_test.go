package filter

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/domain/collection/field"
)

func TestParseWhere_Empty(t *testing.T) {
	for _, m := range []map[string]any{nil, {}} {
		n, err := ParseWhere(m)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != nil {
			t.Errorf("expected nil node, got %#v", n)
		}
	}
}

func TestParseWhere_Comparison(t *testing.T) {
	n, err := ParseWhere(map[string]any{"score": map[string]any{"$lt": 50}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, ok := n.(*Comparison)
	if !ok {
		t.Fatalf("expected *Comparison, got %T", n)
	}
	if c.Field != "score" || c.Op != Lt {
		t.Errorf("got %s %s", c.Field, c.Op)
	}
	if c.Value.Family() != field.Numeric || c.Value.Num() != 50 {
		t.Errorf("value = %v (%s)", c.Value, c.Value.Family())
	}
}

func TestParseWhere_ImplicitEq(t *testing.T) {
	n, err := ParseWhere(map[string]any{"lang": "go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := n.(*Comparison)
	if c.Op != Eq || c.Value.Str() != "go" {
		t.Errorf("got %s %v", c.Op, c.Value)
	}
}

func TestParseWhere_ImplicitAndIsSorted(t *testing.T) {
	n, err := ParseWhere(map[string]any{"b": true, "a": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l, ok := n.(*Logical)
	if !ok || l.Op != And || len(l.Children) != 2 {
		t.Fatalf("expected $and of two, got %#v", n)
	}
	if l.Children[0].(*Comparison).Field != "a" {
		t.Error("children not sorted by field name")
	}
}

func TestParseWhere_MultipleOperatorsOnOneField(t *testing.T) {
	n, err := ParseWhere(map[string]any{"age": map[string]any{"$gt": 1, "$lt": 5}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l := n.(*Logical)
	if len(l.Children) != 2 || l.Children[0].(*Comparison).Op != Gt {
		t.Errorf("got %#v", l.Children)
	}
}

func TestParseWhere_Nested(t *testing.T) {
	n, err := ParseWhere(map[string]any{
		"$or": []any{
			map[string]any{"lang": map[string]any{"$in": []any{"go", "rust"}}},
			map[string]any{"$and": []map[string]any{
				{"score": map[string]any{"$gte": 10}},
				{"active": map[string]any{"$ne": false}},
			}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	or := n.(*Logical)
	if or.Op != Or || len(or.Children) != 2 {
		t.Fatalf("got %#v", or)
	}
	in := or.Children[0].(*Comparison)
	if in.Op != In || len(in.Values) != 2 || in.Values[1].Str() != "rust" {
		t.Errorf("in = %#v", in)
	}
	and := or.Children[1].(*Logical)
	if and.Op != And || and.Children[1].(*Comparison).Value.Family() != field.Bool {
		t.Errorf("and = %#v", and)
	}
}

func TestParseWhere_TypedSliceOperand(t *testing.T) {
	n, err := ParseWhere(map[string]any{"n": map[string]any{"$nin": []int{1, 2}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c := n.(*Comparison); len(c.Values) != 2 || c.Values[0].Num() != 1 {
		t.Errorf("values = %v", c.Values)
	}
}

func TestParseWhere_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
	}{
		{"unknown operator", map[string]any{"a": map[string]any{"$like": "x"}}},
		{"unknown top-level operator", map[string]any{"$not": []any{}}},
		{"in with scalar", map[string]any{"a": map[string]any{"$in": "x"}}},
		{"in with empty list", map[string]any{"a": map[string]any{"$in": []any{}}}},
		{"in with nested list", map[string]any{"a": map[string]any{"$in": []any{[]any{1}}}}},
		{"and with scalar", map[string]any{"$and": "x"}},
		{"and with empty list", map[string]any{"$and": []any{}}},
		{"and with non-object", map[string]any{"$and": []any{1}}},
		{"and with empty child", map[string]any{"$and": []any{map[string]any{}}}},
		{"empty operator object", map[string]any{"a": map[string]any{}}},
		{"nil operand", map[string]any{"a": nil}},
		{"list operand for eq", map[string]any{"a": map[string]any{"$eq": []any{1}}}},
		{"bad field name", map[string]any{"a b": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWhere(tt.in)
			if !errors.Is(err, domain.ErrFilterSyntax) {
				t.Errorf("expected ErrFilterSyntax, got %v", err)
			}
		})
	}
}

func TestParseWhereDocument(t *testing.T) {
	n, err := ParseWhereDocument(map[string]any{
		"$and": []any{
			map[string]any{"$contains": "vector"},
			map[string]any{"$or": []any{
				map[string]any{"$contains": "search"},
				map[string]any{"$regex": "^intro"},
			}},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	and := n.(*DocLogical)
	if and.Op != And || len(and.Children) != 2 {
		t.Fatalf("got %#v", and)
	}
	if got := Terms(n); len(got) != 2 || got[0] != "vector" || got[1] != "search" {
		t.Errorf("Terms = %q", got)
	}
}

func TestParseWhereDocument_Empty(t *testing.T) {
	n, err := ParseWhereDocument(nil)
	if err != nil || n != nil {
		t.Errorf("got %#v, %v", n, err)
	}
	if Terms(nil) != nil {
		t.Error("Terms(nil) should be nil")
	}
}

func TestParseWhereDocument_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
	}{
		{"unknown operator", map[string]any{"$startsWith": "x"}},
		{"contains non-string", map[string]any{"$contains": 3}},
		{"contains empty", map[string]any{"$contains": ""}},
		{"invalid regex", map[string]any{"$regex": "("}},
		{"or scalar", map[string]any{"$or": "x"}},
		{"field key", map[string]any{"document": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWhereDocument(tt.in)
			if !errors.Is(err, domain.ErrFilterSyntax) {
				t.Errorf("expected ErrFilterSyntax, got %v", err)
			}
		})
	}
}

func TestNewValue(t *testing.T) {
	if _, ok := NewValue(nil); ok {
		t.Error("nil must not be a value")
	}
	v, ok := NewValue(int64(7))
	if !ok || v.Any() != float64(7) {
		t.Errorf("int64 value = %v", v.Any())
	}
	b, _ := NewValue(true)
	if b.String() != "true" {
		t.Errorf("String() = %q", b.String())
	}
}

func TestOpClassification(t *testing.T) {
	if !In.IsSet() || Eq.IsSet() {
		t.Error("IsSet mismatch")
	}
	if !Gte.IsOrdering() || Ne.IsOrdering() {
		t.Error("IsOrdering mismatch")
	}
}
