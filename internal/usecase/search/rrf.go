package search

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/seekdb/internal/db"
)

// hit is one id of a fused ranking. Ranks are 1-based; 0 means absent.
type hit struct {
	row      db.Row
	textRank int
	knnRank  int
	score    float64
	distance *float64
}

func (h *hit) minRank() int {
	switch {
	case h.textRank == 0:
		return h.knnRank
	case h.knnRank == 0:
		return h.textRank
	default:
		return min(h.textRank, h.knnRank)
	}
}

// fuseRRF merges a full-text and a vector ranking via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) over the rankings where d appears
// within the first window ranks (0 = all). The top n hits are returned by
// descending score, then lower minimum rank, then id.
// Row fields come from the vector side when an id appears in both.
func fuseRRF(text, knn []db.Row, k, window, n int) []hit {
	merged := make(map[string]*hit, len(text)+len(knn))
	order := make([]*hit, 0, len(text)+len(knn))
	get := func(row *db.Row) *hit {
		h, ok := merged[row.ID]
		if !ok {
			h = &hit{row: *row}
			merged[row.ID] = h
			order = append(order, h)
		}
		return h
	}

	for i := range knn {
		rank := i + 1
		if window > 0 && rank > window {
			break
		}
		h := get(&knn[i])
		h.knnRank = rank
		d := knn[i].Distance
		h.distance = &d
		h.score += 1.0 / float64(k+rank)
	}
	for i := range text {
		rank := i + 1
		if window > 0 && rank > window {
			break
		}
		h := get(&text[i])
		h.textRank = rank
		h.score += 1.0 / float64(k+rank)
	}

	slices.SortFunc(order, compareHits)
	if n > 0 && len(order) > n {
		order = order[:n]
	}
	out := make([]hit, len(order))
	for i, h := range order {
		out[i] = *h
	}
	return out
}

func compareHits(a, b *hit) int {
	switch {
	case a.score > b.score:
		return -1
	case a.score < b.score:
		return 1
	}
	if ra, rb := a.minRank(), b.minRank(); ra != rb {
		return ra - rb
	}
	return strings.Compare(a.row.ID, b.row.ID)
}
