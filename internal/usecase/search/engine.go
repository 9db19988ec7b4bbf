// Package search runs hybrid searches: a full-text and a vector sub-search
// executed concurrently and fused with Reciprocal Rank Fusion.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/domain"
	domcol "github.com/kailas-cloud/seekdb/internal/domain/collection"
	"github.com/kailas-cloud/seekdb/internal/domain/mode"
	"github.com/kailas-cloud/seekdb/internal/domain/record"
	"github.com/kailas-cloud/seekdb/internal/domain/search/filter"
	"github.com/kailas-cloud/seekdb/internal/domain/search/request"
	"github.com/kailas-cloud/seekdb/internal/domain/search/result"
	"github.com/kailas-cloud/seekdb/internal/logger"
	"github.com/kailas-cloud/seekdb/internal/metrics"
	"github.com/kailas-cloud/seekdb/internal/predicate"
	"github.com/kailas-cloud/seekdb/internal/usecase/collection"
	"github.com/kailas-cloud/seekdb/internal/usecase/embedding"
)

// Engine executes hybrid search requests.
type Engine struct {
	store    Store
	colls    Collections
	resolver *embedding.Resolver
	mode     string
}

// New creates a hybrid search engine.
func New(store Store, colls Collections, resolver *embedding.Resolver, m mode.BackendMode) *Engine {
	return &Engine{store: store, colls: colls, resolver: resolver, mode: string(m)}
}

// Search runs the sub-searches of req. A single sub-search is returned as is;
// two are fused.
func (e *Engine) Search(ctx context.Context, h collection.Handle, req *request.Hybrid) (_ []result.Item, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveOperation("hybrid_search", e.mode, start, err)
		if err != nil {
			logger.FromContext(ctx).Debug("hybrid search failed",
				zap.String("collection", h.Collection.Name()),
				zap.String("search_mode", string(req.Mode())),
				zap.Error(err))
		}
	}()

	if req.Text() == nil && req.KNN() == nil {
		return nil, fmt.Errorf("%w: hybrid search needs a query or knn sub-request", domain.ErrMissingInput)
	}
	if req.Text() != nil && !e.store.Capabilities().TextSearch {
		return nil, fmt.Errorf("%w: full-text search", domain.ErrUnsupportedMode)
	}
	col, err := e.colls.Refresh(ctx, h)
	if err != nil {
		return nil, err
	}
	ref := collection.Ref(h.Scope, col)
	inc := req.Include()
	dbInc := db.Include{Documents: inc.Documents, Metadatas: inc.Metadatas, Embeddings: inc.Embeddings}

	// Filters of both sides compile before anything is dispatched.
	var textPred, knnPred *predicate.Predicate
	compiler := e.colls.Compiler()
	if t := req.Text(); t != nil {
		if textPred, err = compiler.Compile(predicate.Input{Where: t.Where, WhereDocument: t.WhereDocument, Schema: col}); err != nil {
			return nil, err
		}
	}
	if k := req.KNN(); k != nil {
		if knnPred, err = compiler.CompileMetadata(k.Where, col); err != nil {
			return nil, err
		}
	}

	var textRows, knnRows []db.Row
	g, gctx := errgroup.WithContext(ctx)
	if t := req.Text(); t != nil {
		g.Go(func() error {
			rows, err := e.searchText(gctx, ref, textPred, t, dbInc)
			textRows = rows
			return err
		})
	}
	if k := req.KNN(); k != nil {
		g.Go(func() error {
			rows, err := e.searchKNN(gctx, ref, col, knnPred, k, dbInc)
			knnRows = rows
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	switch {
	case req.KNN() == nil:
		return scored(textRows, inc), nil
	case req.Text() == nil:
		return result.FromRows(knnRows, true, inc), nil
	}
	hits := fuseRRF(textRows, knnRows, req.RankConstant(), req.RankWindow(), req.NResults())
	out := make([]result.Item, len(hits))
	for i := range hits {
		it := result.FromRow(&hits[i].row, false, inc)
		it.Distance = hits[i].distance
		s := hits[i].score
		it.Score = &s
		out[i] = it
	}
	return out, nil
}

func (e *Engine) searchText(
	ctx context.Context, ref *db.CollectionRef, p *predicate.Predicate, t *request.Text, inc db.Include,
) ([]db.Row, error) {
	rows, err := e.store.SearchText(ctx, &db.TextQuery{
		Collection: ref,
		Predicate:  p,
		Terms:      filter.Terms(t.WhereDocument),
		Limit:      t.NResults,
		Include:    inc,
	})
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	return rows, nil
}

func (e *Engine) searchKNN(
	ctx context.Context, ref *db.CollectionRef, col domcol.Collection, p *predicate.Predicate, k *request.KNN,
	inc db.Include,
) ([]db.Row, error) {
	src, err := e.resolver.ResolveForQuery(ctx, nonEmpty(k.QueryEmbeddings), nonEmpty(k.QueryTexts), col.Binding())
	if err != nil {
		return nil, err
	}
	if len(src.Vectors) != 1 {
		return nil, fmt.Errorf("%w: knn takes exactly one query", domain.ErrInvalidArgument)
	}
	rows, err := e.store.Query(ctx, &db.RowQuery{
		Collection: ref,
		Predicate:  p,
		Vector:     src.Vectors[0],
		Limit:      k.NResults,
		Include:    inc,
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}
	return rows, nil
}

// scored converts full-text rows, carrying the backend relevance score.
func scored(rows []db.Row, inc record.IncludeSet) []result.Item {
	out := make([]result.Item, len(rows))
	for i := range rows {
		it := result.FromRow(&rows[i], false, inc)
		s := rows[i].Score
		it.Score = &s
		out[i] = it
	}
	return out
}

func nonEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}
