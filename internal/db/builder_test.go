package db

import "testing"

func TestIndexBuilder_RecordIndex(t *testing.T) {
	idx, err := NewIndex("seekdb:idx:c1").
		Prefix("seekdb:rec:c1:").
		NoStopWords().
		SortableTag("__id").
		Text("__document").
		VectorHNSW("__vector", 384, MetricFor(MetricL2), 0, 0).
		Numeric("score").
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !idx.NoStopWords || len(idx.Prefixes) != 1 {
		t.Errorf("definition = %+v", idx)
	}
	if len(idx.Fields) != 4 {
		t.Fatalf("fields count = %d, want 4", len(idx.Fields))
	}
	if f := idx.Fields[0]; f.Type != IndexFieldTag || !f.Sortable || !f.TagCaseSensitive {
		t.Errorf("id field = %+v", f)
	}
	if f := idx.Fields[2]; f.VectorDistance != DistanceL2 || f.VectorDim != 384 || f.VectorAlgo != VectorHNSW {
		t.Errorf("vector field = %+v", f)
	}
}

func TestIndexBuilder_Invalid(t *testing.T) {
	tests := []struct {
		name string
		b    *IndexBuilder
	}{
		{"empty name", NewIndex("").Tag("a")},
		{"bad name", NewIndex("idx with space").Tag("a")},
		{"no fields", NewIndex("idx")},
		{"duplicate field", NewIndex("idx").Tag("a").Numeric("a")},
		{"zero dim", NewIndex("idx").VectorHNSW("v", 0, DistanceCosine, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.b.Build(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMetricFor(t *testing.T) {
	if MetricFor(MetricCosine) != DistanceCosine || MetricFor(MetricIP) != DistanceIP || MetricFor("") != DistanceCosine {
		t.Error("unexpected metric mapping")
	}
}

func TestIsValidIdentifier(t *testing.T) {
	for _, s := range []string{"seekdb:idx:0b1e-42", "a_b"} {
		if !IsValidIdentifier(s) {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []string{"", "a b", "a{b}"} {
		if IsValidIdentifier(s) {
			t.Errorf("%q should be invalid", s)
		}
	}
}
