// Package embedding decides where the vectors of a call come from and
// enforces the collection dimension on every produced vector.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/seekdb/internal/domain"
	domcol "github.com/kailas-cloud/seekdb/internal/domain/collection"
)

// Op is the collection operation a mutation resolves vectors for.
type Op string

// Mutation operations.
const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpUpsert Op = "upsert"
)

// Kind tells where resolved vectors came from.
type Kind int

// Vector source kinds.
const (
	// None means the call carries no vectors (metadata-only mutation).
	None Kind = iota
	// Explicit vectors were supplied by the caller and used verbatim.
	Explicit
	// Derived vectors were produced by the bound embedding function.
	Derived
)

func (k Kind) String() string {
	switch k {
	case Explicit:
		return "explicit"
	case Derived:
		return "derived"
	default:
		return "none"
	}
}

// VectorSource is the outcome of resolution for one call.
type VectorSource struct {
	Kind    Kind
	Vectors [][]float32
}

// probeText is embedded once when a function cannot report its dimension.
const probeText = "dimension probe"

// Resolver applies the vector precedence rules:
// caller vectors win verbatim, else texts are embedded once per batch,
// else the call has no vectors.
// It holds no per-call state.
type Resolver struct{}

// NewResolver creates a Resolver.
func NewResolver() *Resolver { return &Resolver{} }

// ResolveForMutation resolves the vectors of an add, update or upsert batch.
// vectors and documents are nil when the caller did not supply them.
func (r *Resolver) ResolveForMutation(
	ctx context.Context, op Op, ids []string,
	vectors [][]float32, documents []string, binding domcol.Binding,
) (VectorSource, error) {
	if vectors != nil && len(vectors) != len(ids) {
		return VectorSource{}, fmt.Errorf("%w: %d embeddings for %d ids", domain.ErrInvalidArgument, len(vectors), len(ids))
	}
	if documents != nil && len(documents) != len(ids) {
		return VectorSource{}, fmt.Errorf("%w: %d documents for %d ids", domain.ErrInvalidArgument, len(documents), len(ids))
	}
	var src VectorSource
	var err error
	if vectors == nil && documents != nil {
		src, err = r.deriveDocuments(ctx, documents, binding)
	} else {
		src, err = r.resolve(ctx, vectors, documents, binding)
	}
	if err != nil {
		return VectorSource{}, err
	}
	if src.Kind == None && op == OpAdd {
		return VectorSource{}, fmt.Errorf("%w: add needs embeddings or documents", domain.ErrMissingInput)
	}
	return src, nil
}

// deriveDocuments embeds the non-empty documents of a batch in one call.
// An empty document clears the stored text: its slot gets a nil vector and
// the stored vector is kept. A batch of clears needs no function.
func (r *Resolver) deriveDocuments(ctx context.Context, documents []string, binding domcol.Binding) (VectorSource, error) {
	texts := make([]string, 0, len(documents))
	at := make([]int, 0, len(documents))
	for i, d := range documents {
		if d != "" {
			texts = append(texts, d)
			at = append(at, i)
		}
	}
	if len(texts) == 0 {
		return VectorSource{Kind: None}, nil
	}
	derived, err := r.resolve(ctx, nil, texts, binding)
	if err != nil {
		var dm *domain.DimensionMismatchError
		if errors.As(err, &dm) && dm.Index < len(at) {
			dm.Index = at[dm.Index]
		}
		return VectorSource{}, err
	}
	if len(texts) == len(documents) {
		return derived, nil
	}
	out := make([][]float32, len(documents))
	for j, i := range at {
		out[i] = derived.Vectors[j]
	}
	return VectorSource{Kind: Derived, Vectors: out}, nil
}

// ResolveForQuery resolves query vectors. A query without vectors fails;
// an empty batch counts as absent.
func (r *Resolver) ResolveForQuery(
	ctx context.Context, queryEmbeddings [][]float32, queryTexts []string, binding domcol.Binding,
) (VectorSource, error) {
	if len(queryEmbeddings) == 0 {
		queryEmbeddings = nil
	}
	if len(queryTexts) == 0 {
		queryTexts = nil
	}
	src, err := r.resolve(ctx, queryEmbeddings, queryTexts, binding)
	if err != nil {
		return VectorSource{}, err
	}
	if src.Kind == None {
		return VectorSource{}, fmt.Errorf("%w: query needs query_embeddings or query_texts", domain.ErrMissingInput)
	}
	return src, nil
}

func (r *Resolver) resolve(
	ctx context.Context, vectors [][]float32, texts []string, binding domcol.Binding,
) (VectorSource, error) {
	switch {
	case vectors != nil:
		if err := checkDimensions(vectors, binding.Dimension()); err != nil {
			return VectorSource{}, err
		}
		return VectorSource{Kind: Explicit, Vectors: vectors}, nil
	case texts != nil:
		if !binding.HasFunction() {
			return VectorSource{}, fmt.Errorf("%w: texts supplied without embeddings", domain.ErrMissingEmbeddingFunction)
		}
		if len(texts) == 0 {
			return VectorSource{Kind: Derived, Vectors: [][]float32{}}, nil
		}
		out, err := embed(ctx, binding.Function(), texts)
		if err != nil {
			return VectorSource{}, err
		}
		if err := checkDimensions(out, binding.Dimension()); err != nil {
			return VectorSource{}, err
		}
		return VectorSource{Kind: Derived, Vectors: out}, nil
	default:
		return VectorSource{Kind: None}, nil
	}
}

// embed calls fn once and checks its count contract.
func embed(ctx context.Context, fn domain.EmbeddingFunction, texts []string) ([][]float32, error) {
	out, err := fn.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrEmbeddingProviderError, domain.FunctionName(fn), err)
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d vectors for %d texts",
			domain.ErrEmbeddingFunctionContract, domain.FunctionName(fn), len(out), len(texts))
	}
	return out, nil
}

func checkDimensions(vectors [][]float32, dim int) error {
	if dim <= 0 {
		return nil
	}
	for i, v := range vectors {
		if len(v) != dim {
			return &domain.DimensionMismatchError{Expected: dim, Actual: len(v), Index: i}
		}
	}
	return nil
}

// ProbeDimension settles the configuration of a new collection.
// Without configuration the function's dimension is used, or the default
// configuration when no function is given. A configuration whose dimension
// differs from the function's output fails before any state is created.
func (r *Resolver) ProbeDimension(
	ctx context.Context, cfg *domcol.Configuration, fn domain.EmbeddingFunction,
) (domcol.Configuration, error) {
	if fn == nil {
		if cfg == nil {
			return domcol.DefaultConfiguration(), nil
		}
		return validated(*cfg)
	}
	dim, err := functionDimension(ctx, fn)
	if err != nil {
		return domcol.Configuration{}, err
	}
	if cfg == nil {
		return domcol.Configuration{Dimension: dim, Distance: domcol.DefaultDistance}, nil
	}
	if cfg.Dimension != dim {
		return domcol.Configuration{}, &domain.DimensionMismatchError{Expected: cfg.Dimension, Actual: dim}
	}
	return validated(*cfg)
}

func validated(cfg domcol.Configuration) (domcol.Configuration, error) {
	if err := cfg.Validate(); err != nil {
		return domcol.Configuration{}, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	return cfg, nil
}

func functionDimension(ctx context.Context, fn domain.EmbeddingFunction) (int, error) {
	if d, ok := fn.(domain.Dimensioner); ok && d.Dimension() > 0 {
		return d.Dimension(), nil
	}
	out, err := embed(ctx, fn, []string{probeText})
	if err != nil {
		return 0, err
	}
	if len(out[0]) == 0 {
		return 0, fmt.Errorf("%w: %s returned an empty vector", domain.ErrEmbeddingFunctionContract, domain.FunctionName(fn))
	}
	return len(out[0]), nil
}
