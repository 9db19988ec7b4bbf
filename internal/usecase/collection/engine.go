package collection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/seekdb/internal/db"
	"github.com/kailas-cloud/seekdb/internal/domain"
	domcol "github.com/kailas-cloud/seekdb/internal/domain/collection"
	"github.com/kailas-cloud/seekdb/internal/domain/collection/field"
	"github.com/kailas-cloud/seekdb/internal/domain/mode"
	"github.com/kailas-cloud/seekdb/internal/domain/search/result"
	"github.com/kailas-cloud/seekdb/internal/logger"
	"github.com/kailas-cloud/seekdb/internal/metrics"
	"github.com/kailas-cloud/seekdb/internal/predicate"
	"github.com/kailas-cloud/seekdb/internal/usecase/embedding"
)

// Handle addresses one collection of one database together with the
// embedding function bound to it.
type Handle struct {
	Scope      db.Scope
	Collection domcol.Collection
}

// Engine executes record operations against a collection.
type Engine struct {
	store    Store
	compiler *predicate.Compiler
	resolver *embedding.Resolver
	mode     string
}

// NewEngine creates a record engine over store.
func NewEngine(store Store, resolver *embedding.Resolver, m mode.BackendMode) *Engine {
	return &Engine{
		store:    store,
		compiler: predicate.NewCompiler(store.Dialect()),
		resolver: resolver,
		mode:     string(m),
	}
}

// Compiler returns the predicate compiler of the store dialect.
func (e *Engine) Compiler() *predicate.Compiler { return e.compiler }

// Refresh reloads the stored definition of h, keeping its binding.
func (e *Engine) Refresh(ctx context.Context, h Handle) (domcol.Collection, error) {
	info, err := e.store.GetCollection(ctx, h.Scope, h.Collection.Name())
	if err != nil {
		return domcol.Collection{}, catalogError(err, "collection", h.Collection.Name())
	}
	col := fromInfo(&info)
	if fn := h.Collection.Binding().Function(); fn != nil {
		col = col.Bind(fn)
	}
	return col, nil
}

// Ref returns the record storage reference of col.
func Ref(scope db.Scope, col domcol.Collection) *db.CollectionRef {
	return db.RefOf(scope, toInfo(col))
}

func (e *Engine) observe(ctx context.Context, op string, h Handle, start time.Time, err error) {
	metrics.ObserveOperation(op, e.mode, start, err)
	if err != nil {
		logger.FromContext(ctx).Debug("collection operation failed",
			zap.String("operation", op),
			zap.String("collection", h.Collection.Name()),
			zap.Error(err))
	}
}

// Add inserts new records. Every id must be new; the whole batch is
// rejected before any write otherwise.
func (e *Engine) Add(ctx context.Context, h Handle, req MutateRequest) (err error) {
	defer func(start time.Time) { e.observe(ctx, "add", h, start, err) }(time.Now())
	return e.mutate(ctx, h, embedding.OpAdd, req)
}

// Update changes existing records. Every id must exist.
func (e *Engine) Update(ctx context.Context, h Handle, req MutateRequest) (err error) {
	defer func(start time.Time) { e.observe(ctx, "update", h, start, err) }(time.Now())
	return e.mutate(ctx, h, embedding.OpUpdate, req)
}

// Upsert inserts absent ids and updates present ones in one batch.
func (e *Engine) Upsert(ctx context.Context, h Handle, req MutateRequest) (err error) {
	defer func(start time.Time) { e.observe(ctx, "upsert", h, start, err) }(time.Now())
	return e.mutate(ctx, h, embedding.OpUpsert, req)
}

func (e *Engine) mutate(ctx context.Context, h Handle, op embedding.Op, req MutateRequest) error {
	if !req.IDs.Supplied() {
		return fmt.Errorf("%w: ids are required", domain.ErrMissingInput)
	}
	ids := req.IDs.Items()
	if len(ids) == 0 {
		return fmt.Errorf("%w: ids must not be empty", domain.ErrInvalidArgument)
	}
	if err := uniqueIDs(ids); err != nil {
		return err
	}
	metas := optional(req.Metadatas)
	if metas != nil && len(metas) != len(ids) {
		return fmt.Errorf("%w: %d metadatas for %d ids", domain.ErrInvalidArgument, len(metas), len(ids))
	}
	docs := optional(req.Documents)

	col, err := e.Refresh(ctx, h)
	if err != nil {
		return err
	}
	ref := Ref(h.Scope, col)
	existing, err := e.store.ExistingIDs(ctx, ref, ids)
	if err != nil {
		return fmt.Errorf("check ids: %w", err)
	}
	if err := checkPresence(op, ids, existing); err != nil {
		return err
	}
	added, err := col.InferFields(metas)
	if err != nil {
		return err
	}

	src, err := e.resolver.ResolveForMutation(ctx, op, ids, optional(req.Embeddings), docs, col.Binding())
	if err != nil {
		return err
	}
	for i, id := range ids {
		if !existing[id] && (src.Kind == embedding.None || src.Vectors[i] == nil) {
			return fmt.Errorf("%w: id %q is new and has no embeddings or documents", domain.ErrMissingInput, id)
		}
	}

	if len(added) > 0 {
		if err := e.store.AddFields(ctx, ref, fieldMap(added)); err != nil {
			return fmt.Errorf("extend schema: %w", err)
		}
		ref = Ref(h.Scope, col.WithFields(added))
	}

	rows := make([]db.RowWrite, len(ids))
	for i, id := range ids {
		w := db.RowWrite{ID: id, Insert: !existing[id]}
		if docs != nil {
			w.Document = &docs[i]
		}
		if src.Kind != embedding.None {
			w.Embedding = src.Vectors[i]
		}
		if metas != nil {
			w.Metadata = metas[i]
			w.SetMetadata = true
		}
		rows[i] = w
	}
	err = e.store.Mutate(ctx, &db.Mutation{Collection: ref, Rows: rows})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrKeyExists):
		return fmt.Errorf("%w: %w", domain.ErrDuplicateID, err)
	case errors.Is(err, db.ErrKeyNotFound):
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	default:
		return fmt.Errorf("write records: %w", err)
	}
}

func checkPresence(op embedding.Op, ids []string, existing map[string]bool) error {
	var bad []string
	for _, id := range ids {
		switch {
		case op == embedding.OpAdd && existing[id]:
			bad = append(bad, id)
		case op == embedding.OpUpdate && !existing[id]:
			bad = append(bad, id)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	if op == embedding.OpAdd {
		return domain.NewDuplicateIDError(bad...)
	}
	return domain.NewNotFoundIDError(bad...)
}

// Delete removes the rows matching ids ∧ where ∧ where_document and
// returns how many were removed.
func (e *Engine) Delete(ctx context.Context, h Handle, req DeleteRequest) (n int, err error) {
	defer func(start time.Time) { e.observe(ctx, "delete", h, start, err) }(time.Now())

	f, err := parseFilters(req.Where, req.WhereDocument)
	if err != nil {
		return 0, err
	}
	if !req.IDs.Supplied() && f.empty() {
		return 0, fmt.Errorf("%w: delete needs ids, where or where_document", domain.ErrMissingInput)
	}
	if req.IDs.Supplied() && req.IDs.Len() == 0 {
		return 0, nil
	}
	col, err := e.Refresh(ctx, h)
	if err != nil {
		return 0, err
	}
	p, err := e.compiler.Compile(predicate.Input{
		IDs: req.IDs.Items(), Where: f.where, WhereDocument: f.doc, Schema: col,
	})
	if err != nil {
		return 0, err
	}
	n, err = e.store.Delete(ctx, Ref(h.Scope, col), p)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return n, nil
}

// Get returns the rows matching ids ∧ where ∧ where_document in native
// row order. The result is scalar when the ids were a single value.
func (e *Engine) Get(ctx context.Context, h Handle, req GetRequest) (_ result.Shaped[result.Item], err error) {
	defer func(start time.Time) { e.observe(ctx, "get", h, start, err) }(time.Now())

	scalar := req.IDs.Scalar()
	if req.Limit < 0 || req.Offset < 0 {
		return result.Shaped[result.Item]{}, fmt.Errorf("%w: limit and offset must not be negative", domain.ErrInvalidArgument)
	}
	inc, dbInc, err := includeOf(req.Include)
	if err != nil {
		return result.Shaped[result.Item]{}, err
	}
	f, err := parseFilters(req.Where, req.WhereDocument)
	if err != nil {
		return result.Shaped[result.Item]{}, err
	}
	if req.IDs.Supplied() && req.IDs.Len() == 0 {
		return result.NewShaped([]result.Item{}, scalar), nil
	}
	col, err := e.Refresh(ctx, h)
	if err != nil {
		return result.Shaped[result.Item]{}, err
	}
	p, err := e.compiler.Compile(predicate.Input{
		IDs: req.IDs.Items(), Where: f.where, WhereDocument: f.doc, Schema: col,
	})
	if err != nil {
		return result.Shaped[result.Item]{}, err
	}
	rows, err := e.store.Query(ctx, &db.RowQuery{
		Collection: Ref(h.Scope, col),
		Predicate:  p,
		Limit:      req.Limit,
		Offset:     req.Offset,
		Include:    dbInc,
	})
	if err != nil {
		return result.Shaped[result.Item]{}, fmt.Errorf("read records: %w", err)
	}
	return result.NewShaped(result.FromRows(rows, false, inc), scalar), nil
}

// Query runs one nearest-neighbour search per resolved query vector.
// Each hit list is ordered by ascending distance; ties keep native row order.
func (e *Engine) Query(ctx context.Context, h Handle, req QueryRequest) (_ result.Shaped[[]result.Item], err error) {
	defer func(start time.Time) { e.observe(ctx, "query", h, start, err) }(time.Now())

	var none result.Shaped[[]result.Item]
	n := req.NResults
	switch {
	case n < 0:
		return none, fmt.Errorf("%w: n_results must not be negative", domain.ErrInvalidArgument)
	case n == 0:
		n = DefaultNResults
	}
	inc, dbInc, err := includeOf(req.Include)
	if err != nil {
		return none, err
	}
	f, err := parseFilters(req.Where, req.WhereDocument)
	if err != nil {
		return none, err
	}
	col, err := e.Refresh(ctx, h)
	if err != nil {
		return none, err
	}
	p, err := e.compiler.Compile(predicate.Input{Where: f.where, WhereDocument: f.doc, Schema: col})
	if err != nil {
		return none, err
	}
	src, err := e.resolver.ResolveForQuery(ctx, optional(req.QueryEmbeddings), optional(req.QueryTexts), col.Binding())
	if err != nil {
		return none, err
	}
	scalar := req.QueryEmbeddings.Scalar()
	if src.Kind == embedding.Derived {
		scalar = req.QueryTexts.Scalar()
	}

	ref := Ref(h.Scope, col)
	out := make([][]result.Item, len(src.Vectors))
	for i, v := range src.Vectors {
		rows, err := e.store.Query(ctx, &db.RowQuery{
			Collection: ref,
			Predicate:  p,
			Vector:     v,
			Limit:      n,
			Include:    dbInc,
		})
		if err != nil {
			return none, fmt.Errorf("query %d: %w", i, err)
		}
		out[i] = result.FromRows(rows, true, inc)
	}
	return result.NewShaped(out, scalar), nil
}

// Count returns the number of records in the collection.
func (e *Engine) Count(ctx context.Context, h Handle) (n int, err error) {
	defer func(start time.Time) { e.observe(ctx, "count", h, start, err) }(time.Now())

	col, err := e.Refresh(ctx, h)
	if err != nil {
		return 0, err
	}
	n, err = e.store.Count(ctx, Ref(h.Scope, col))
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Peek returns the first limit records in native order.
func (e *Engine) Peek(ctx context.Context, h Handle, limit int) ([]result.Item, error) {
	if limit <= 0 {
		limit = DefaultPeekLimit
	}
	res, err := e.Get(ctx, h, GetRequest{Limit: limit})
	if err != nil {
		return nil, err
	}
	return res.Items(), nil
}

// Description summarizes a collection.
type Description struct {
	Name      string
	ID        string
	Dimension int
	Distance  domcol.Distance
	Metadata  map[string]any
	Fields    []field.Field
	Count     int
	Function  string
}

// Describe reports the stored definition and size of a collection.
func (e *Engine) Describe(ctx context.Context, h Handle) (Description, error) {
	col, err := e.Refresh(ctx, h)
	if err != nil {
		return Description{}, err
	}
	n, err := e.store.Count(ctx, Ref(h.Scope, col))
	if err != nil {
		return Description{}, fmt.Errorf("count records: %w", err)
	}
	d := Description{
		Name:      col.Name(),
		ID:        col.ID(),
		Dimension: col.Dimension(),
		Distance:  col.Distance(),
		Metadata:  col.Metadata(),
		Fields:    col.Fields(),
		Count:     n,
	}
	if fn := col.Binding().Function(); fn != nil {
		d.Function = domain.FunctionName(fn)
	}
	return d, nil
}

// catalogError maps backend not-found and exists conditions of a catalog
// entry to the domain taxonomy.
func catalogError(err error, kind, name string) error {
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return fmt.Errorf("%s %q: %w", kind, name, domain.ErrNotFound)
	case errors.Is(err, db.ErrKeyExists):
		return fmt.Errorf("%s %q: %w", kind, name, domain.ErrAlreadyExists)
	default:
		return fmt.Errorf("%s %q: %w", kind, name, err)
	}
}
