package request

import (
	"fmt"

	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/domain/record"
	"github.com/kailas-cloud/seekdb/internal/domain/search/filter"
	"github.com/kailas-cloud/seekdb/internal/domain/search/mode"
)

// Hybrid search defaults.
const (
	DefaultNResults     = 10
	DefaultRankConstant = 60
)

// Input is the caller shape of a hybrid search request.
type Input struct {
	Query    *QueryInput      `json:"query,omitempty"`
	KNN      *KNNInput        `json:"knn,omitempty"`
	Rank     *RankInput       `json:"rank,omitempty"`
	NResults int              `json:"n_results,omitempty"`
	Include  []record.Include `json:"include,omitempty"`
}

// QueryInput is the full-text sub-request.
type QueryInput struct {
	WhereDocument map[string]any `json:"where_document,omitempty"`
	Where         map[string]any `json:"where,omitempty"`
	NResults      int            `json:"n_results,omitempty"`
}

// KNNInput is the vector sub-request.
type KNNInput struct {
	QueryTexts      []string       `json:"query_texts,omitempty"`
	QueryEmbeddings [][]float32    `json:"query_embeddings,omitempty"`
	Where           map[string]any `json:"where,omitempty"`
	NResults        int            `json:"n_results,omitempty"`
}

// RankInput selects the fusion method.
type RankInput struct {
	RRF *RRFInput `json:"rrf,omitempty"`
}

// RRFInput tunes reciprocal rank fusion.
type RRFInput struct {
	RankWindowSize int `json:"rank_window_size,omitempty"`
	RankConstant   int `json:"rank_constant,omitempty"`
}

// Text is a parsed full-text sub-request.
type Text struct {
	WhereDocument filter.DocumentNode
	Where         filter.Node
	NResults      int
}

// KNN is a parsed vector sub-request.
type KNN struct {
	QueryTexts      []string
	QueryEmbeddings [][]float32
	Where           filter.Node
	NResults        int
}

// Hybrid is a validated hybrid search request.
type Hybrid struct {
	text         *Text
	knn          *KNN
	rankConstant int
	rankWindow   int
	nResults     int
	include      record.IncludeSet
}

// New parses filters eagerly and applies defaults: n_results=10,
// rank_constant=60, sub-request n_results = n_results.
func New(in Input) (Hybrid, error) {
	if in.Query == nil && in.KNN == nil {
		return Hybrid{}, fmt.Errorf("%w: hybrid search needs a query or knn sub-request", domain.ErrMissingInput)
	}
	if in.NResults < 0 {
		return Hybrid{}, fmt.Errorf("%w: n_results must not be negative", domain.ErrInvalidArgument)
	}
	h := Hybrid{nResults: in.NResults, rankConstant: DefaultRankConstant}
	if h.nResults == 0 {
		h.nResults = DefaultNResults
	}
	if in.Rank != nil && in.Rank.RRF != nil {
		rrf := in.Rank.RRF
		if rrf.RankConstant < 0 || rrf.RankWindowSize < 0 {
			return Hybrid{}, fmt.Errorf("%w: rrf parameters must not be negative", domain.ErrInvalidArgument)
		}
		if rrf.RankConstant > 0 {
			h.rankConstant = rrf.RankConstant
		}
		h.rankWindow = rrf.RankWindowSize
	}
	inc, err := record.ParseInclude(in.Include)
	if err != nil {
		return Hybrid{}, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	h.include = inc

	if q := in.Query; q != nil {
		where, err := filter.ParseWhere(q.Where)
		if err != nil {
			return Hybrid{}, err
		}
		doc, err := filter.ParseWhereDocument(q.WhereDocument)
		if err != nil {
			return Hybrid{}, err
		}
		h.text = &Text{WhereDocument: doc, Where: where, NResults: h.subLimit(q.NResults)}
	}
	if k := in.KNN; k != nil {
		if len(k.QueryTexts)+len(k.QueryEmbeddings) == 0 {
			return Hybrid{}, fmt.Errorf("%w: knn needs query_texts or query_embeddings", domain.ErrMissingInput)
		}
		if len(k.QueryEmbeddings) > 1 || (len(k.QueryEmbeddings) == 0 && len(k.QueryTexts) > 1) {
			return Hybrid{}, fmt.Errorf("%w: knn takes exactly one query", domain.ErrInvalidArgument)
		}
		where, err := filter.ParseWhere(k.Where)
		if err != nil {
			return Hybrid{}, err
		}
		h.knn = &KNN{
			QueryTexts:      k.QueryTexts,
			QueryEmbeddings: k.QueryEmbeddings,
			Where:           where,
			NResults:        h.subLimit(k.NResults),
		}
	}
	return h, nil
}

func (h *Hybrid) subLimit(n int) int {
	if n > 0 {
		return n
	}
	return h.nResults
}

// Text returns the full-text sub-request, nil if absent.
func (h *Hybrid) Text() *Text { return h.text }

// KNN returns the vector sub-request, nil if absent.
func (h *Hybrid) KNN() *KNN { return h.knn }

// RankConstant returns the RRF k.
func (h *Hybrid) RankConstant() int { return h.rankConstant }

// RankWindow returns how many ranks per source participate in fusion; 0 means all.
func (h *Hybrid) RankWindow() int { return h.rankWindow }

// NResults returns the size of the fused output.
func (h *Hybrid) NResults() int { return h.nResults }

// Include returns the fields hydrated into hits.
func (h *Hybrid) Include() record.IncludeSet { return h.include }

// Mode reports which sub-searches run.
func (h *Hybrid) Mode() mode.Mode {
	switch {
	case h.text != nil && h.knn != nil:
		return mode.Hybrid
	case h.text != nil:
		return mode.Keyword
	default:
		return mode.Semantic
	}
}
