package result

import (
	"testing"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/domain/record"
)

func TestFromRows_DistanceOnlyWhenRanked(t *testing.T) {
	doc := "hello"
	rows := []db.Row{{
		ID: "a", Document: &doc, Embedding: []float32{1, 2},
		Metadata: map[string]any{"k": "v"}, Distance: 0.25,
	}}

	got := FromRows(rows, false, record.DefaultInclude())
	if got[0].Distance != nil {
		t.Error("unranked items must not carry a distance")
	}
	if got[0].Document == nil || *got[0].Document != "hello" || got[0].Metadata["k"] != "v" {
		t.Errorf("item = %+v", got[0])
	}
	if got[0].Embedding != nil {
		t.Error("embeddings are not in the default include set")
	}

	got = FromRows(rows, true, record.IncludeSet{Embeddings: true})
	if got[0].Distance == nil || *got[0].Distance != 0.25 {
		t.Errorf("Distance = %v", got[0].Distance)
	}
	if got[0].Document != nil || got[0].Metadata != nil || len(got[0].Embedding) != 2 {
		t.Errorf("include not honored: %+v", got[0])
	}
}

func TestShaped_ScalarFollowsInputShape(t *testing.T) {
	one := []string{"a"}

	s := NewShaped(one, true)
	if v, ok := s.Scalar(); !ok || v != "a" {
		t.Errorf("Scalar() = %q, %v", v, ok)
	}

	seq := NewShaped(one, false)
	if _, ok := seq.Scalar(); ok {
		t.Error("a length-1 sequence must stay a sequence")
	}
	if seq.Len() != 1 || seq.IsScalar() {
		t.Errorf("Len() = %d, IsScalar() = %v", seq.Len(), seq.IsScalar())
	}

	empty := NewShaped([]string{}, true)
	if _, ok := empty.Scalar(); ok {
		t.Error("empty scalar result has no value")
	}
}
