package record

import "testing"

func TestBatch_Shapes(t *testing.T) {
	one := One("a")
	if !one.Scalar() || !one.Supplied() || one.Len() != 1 {
		t.Errorf("One: scalar=%v supplied=%v len=%d", one.Scalar(), one.Supplied(), one.Len())
	}

	many := Many("a")
	if many.Scalar() {
		t.Error("Many with one item must stay a sequence")
	}
	if !many.Supplied() || many.Items()[0] != "a" {
		t.Errorf("Many: %v", many.Items())
	}

	var zero Batch[string]
	if zero.Supplied() || zero.Len() != 0 {
		t.Error("zero Batch must be unsupplied")
	}

	empty := Many[string]()
	if !empty.Supplied() || empty.Len() != 0 {
		t.Error("empty Many must be supplied with no items")
	}
}

func TestParseInclude(t *testing.T) {
	def, err := ParseInclude(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def != DefaultInclude() {
		t.Errorf("nil include = %+v", def)
	}

	s, err := ParseInclude([]Include{IncludeEmbeddings, IncludeDistances})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Embeddings || s.Documents || s.Metadatas {
		t.Errorf("include = %+v", s)
	}

	if _, err := ParseInclude([]Include{"uris"}); err == nil {
		t.Error("expected error for unknown include")
	}
}
