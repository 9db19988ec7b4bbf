package search

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/kailas-cloud/seekdb/internal/db"
)

func rows(ids ...string) []db.Row {
	out := make([]db.Row, len(ids))
	for i, id := range ids {
		out[i] = db.Row{ID: id, Distance: float64(i) / 10}
	}
	return out
}

func hitIDs(hits []hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.row.ID
	}
	return ids
}

func TestFuseRRF_SharedTopRank(t *testing.T) {
	for _, k := range []int{1, 10, 60} {
		hits := fuseRRF(rows("a", "b"), rows("a", "c"), k, 0, 10)
		if hits[0].row.ID != "a" {
			t.Fatalf("k=%d: top = %s", k, hits[0].row.ID)
		}
		want := 2 / float64(k+1)
		if math.Abs(hits[0].score-want) > 1e-12 {
			t.Errorf("k=%d: score = %v, want %v", k, hits[0].score, want)
		}
	}
}

func TestFuseRRF_Monotonic(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for trial := range 50 {
		pool := make([]string, 20)
		for i := range pool {
			pool[i] = fmt.Sprintf("id%02d", i)
		}
		r.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		text := rows(pool[:8]...)
		r.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		knn := rows(pool[:8]...)

		hits := fuseRRF(text, knn, 1+r.IntN(100), 0, 0)
		for i := 1; i < len(hits); i++ {
			if hits[i].score > hits[i-1].score {
				t.Fatalf("trial %d: score rises at %d: %v > %v", trial, i, hits[i].score, hits[i-1].score)
			}
		}
	}
}

func TestFuseRRF_TieBreak(t *testing.T) {
	// text ranks x=1 y=2, knn ranks y=1 z=2.
	hits := fuseRRF(rows("x", "y"), rows("y", "z"), 60, 0, 10)
	got := hitIDs(hits)
	if len(got) != 3 || got[0] != "y" {
		t.Fatalf("order = %v", got)
	}
	// y: text rank 2, knn rank 1.
	if math.Abs(hits[0].score-(1.0/61+1.0/62)) > 1e-12 {
		t.Errorf("score of y = %v", hits[0].score)
	}
	// x (1/61) outscores z (1/62); the tie-break rule only applies to equal scores.
	if got[1] != "x" || got[2] != "z" {
		t.Errorf("order = %v, want [y x z]", got)
	}

	// Equal scores at equal minimum rank fall back to id order.
	hits = fuseRRF(rows("q", "s"), rows("p", "s"), 60, 0, 10)
	if got := hitIDs(hits); got[0] != "s" || got[1] != "p" || got[2] != "q" {
		t.Errorf("order = %v, want [s p q]", got)
	}
}

func TestCompareHits_MinRankBeforeID(t *testing.T) {
	a := &hit{row: db.Row{ID: "a"}, score: 0.5, textRank: 3}
	b := &hit{row: db.Row{ID: "b"}, score: 0.5, knnRank: 1, textRank: 7}
	if compareHits(b, a) >= 0 {
		t.Error("equal score: lower minimum rank must come first")
	}
	c := &hit{row: db.Row{ID: "c"}, score: 0.5, knnRank: 1}
	if compareHits(b, c) >= 0 {
		t.Error("equal score and rank: lower id must come first")
	}
	d := &hit{row: db.Row{ID: "d"}, score: 0.6, knnRank: 9}
	if compareHits(d, b) >= 0 {
		t.Error("higher score must come first")
	}
}

func TestFuseRRF_Window(t *testing.T) {
	hits := fuseRRF(rows("a", "b", "c"), rows("c", "d", "e"), 60, 2, 0)
	got := hitIDs(hits)
	if len(got) != 4 {
		t.Fatalf("ids = %v, want ranks beyond the window dropped", got)
	}
	for _, h := range hits {
		if h.row.ID == "c" {
			if h.textRank != 0 || h.knnRank != 1 {
				t.Errorf("c ranks = text %d, knn %d", h.textRank, h.knnRank)
			}
		}
		if h.row.ID == "e" {
			t.Error("e is outside the window")
		}
	}
}

func TestFuseRRF_DistanceFromVectorSide(t *testing.T) {
	knn := []db.Row{{ID: "a", Distance: 0.25}}
	text := []db.Row{{ID: "a", Score: 3}, {ID: "b", Score: 1}}
	hits := fuseRRF(text, knn, 60, 0, 1)
	if len(hits) != 1 {
		t.Fatalf("len = %d, want n=1", len(hits))
	}
	if hits[0].distance == nil || *hits[0].distance != 0.25 {
		t.Errorf("distance = %v", hits[0].distance)
	}
	hits = fuseRRF(text, knn, 60, 0, 0)
	if hits[1].row.ID != "b" || hits[1].distance != nil {
		t.Errorf("text-only hit = %+v", hits[1])
	}
}
