package chi

import (
	"net/http"
	"strconv"

	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/domain/search/request"
	collectionuc "github.com/kailas-cloud/seekdb/internal/usecase/collection"
)

type mutation func(*collectionuc.Engine, *http.Request, collectionuc.Handle, collectionuc.MutateRequest) error

// Add handles POST .../{collection}/add.
func (s *Server) Add(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(e *collectionuc.Engine, r *http.Request, h collectionuc.Handle, req collectionuc.MutateRequest) error {
		return e.Add(r.Context(), h, req)
	})
}

// Update handles POST .../{collection}/update.
func (s *Server) Update(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(e *collectionuc.Engine, r *http.Request, h collectionuc.Handle, req collectionuc.MutateRequest) error {
		return e.Update(r.Context(), h, req)
	})
}

// Upsert handles POST .../{collection}/upsert.
func (s *Server) Upsert(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(e *collectionuc.Engine, r *http.Request, h collectionuc.Handle, req collectionuc.MutateRequest) error {
		return e.Upsert(r.Context(), h, req)
	})
}

func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op mutation) {
	var req mutateRequest
	if err := decode(r, &req); err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	h, err := s.handle(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	ctx, usage := domain.NewContextWithUsage(r.Context())
	if err := op(s.records, r.WithContext(ctx), h, req.toUsecase()); err != nil {
		s.fail(ctx, w, err)
		return
	}
	setEmbeddingHeaders(w, usage)
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles POST .../{collection}/delete.
func (s *Server) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decode(r, &req); err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	h, err := s.handle(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	n, err := s.records.Delete(r.Context(), h, collectionuc.DeleteRequest{
		IDs:           req.IDs.batch,
		Where:         req.Where,
		WhereDocument: req.WhereDocument,
	})
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Deleted: n})
}

// Get handles POST .../{collection}/get. "ids": "a" returns one object
// (null when missing); a list of ids returns a list.
func (s *Server) Get(w http.ResponseWriter, r *http.Request) {
	var req getRequest
	if err := decode(r, &req); err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	h, err := s.handle(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	res, err := s.records.Get(r.Context(), h, collectionuc.GetRequest{
		IDs:           req.IDs.batch,
		Where:         req.Where,
		WhereDocument: req.WhereDocument,
		Limit:         req.Limit,
		Offset:        req.Offset,
		Include:       req.Include,
	})
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultsResponse{Results: getResults(res)})
}

// Query handles POST .../{collection}/query. A single query returns one
// list of hits; a list of queries returns one list per query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decode(r, &req); err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	h, err := s.handle(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.records.Query(ctx, h, collectionuc.QueryRequest{
		QueryEmbeddings: req.QueryEmbeddings.batch,
		QueryTexts:      req.QueryTexts.batch,
		Where:           req.Where,
		WhereDocument:   req.WhereDocument,
		NResults:        req.NResults,
		Include:         req.Include,
	})
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, resultsResponse{Results: queryResults(res)})
}

// HybridSearch handles POST .../{collection}/hybrid_search.
func (s *Server) HybridSearch(w http.ResponseWriter, r *http.Request) {
	var in request.Input
	if err := decode(r, &in); err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	s.applyRankDefaults(&in)
	hreq, err := request.New(in)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	h, err := s.handle(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	ctx, usage := domain.NewContextWithUsage(r.Context())
	items, err := s.hybrid.Search(ctx, h, &hreq)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, resultsResponse{Results: itemsToDTO(items)})
}

// Count handles GET .../{collection}/count.
func (s *Server) Count(w http.ResponseWriter, r *http.Request) {
	h, err := s.handle(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	n, err := s.records.Count(r.Context(), h)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// Peek handles GET .../{collection}/peek?limit=.
func (s *Server) Peek(w http.ResponseWriter, r *http.Request) {
	var limit int
	if err := bindQuery(r, "limit", &limit); err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	h, err := s.handle(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	items, err := s.records.Peek(r.Context(), h, limit)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultsResponse{Results: itemsToDTO(items)})
}

// applyRankDefaults fills the RRF parameters the request leaves unset.
func (s *Server) applyRankDefaults(in *request.Input) {
	if s.rrf == (request.RRFInput{}) {
		return
	}
	if in.Rank == nil {
		in.Rank = &request.RankInput{}
	}
	if in.Rank.RRF == nil {
		in.Rank.RRF = &request.RRFInput{}
	}
	if in.Rank.RRF.RankConstant == 0 {
		in.Rank.RRF.RankConstant = s.rrf.RankConstant
	}
	if in.Rank.RRF.RankWindowSize == 0 {
		in.Rank.RRF.RankWindowSize = s.rrf.RankWindowSize
	}
}

// setEmbeddingHeaders reports the embedding work of a request.
func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set(EmbeddingTextsHeader, strconv.Itoa(usage.Texts))
		w.Header().Set(EmbeddingTokensHeader, strconv.Itoa(usage.TotalTokens))
	}
}
