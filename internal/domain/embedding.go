package domain

import (
	"context"
	"fmt"
)

// EmbeddingFunction maps an ordered batch of texts to equally ordered vectors.
// Implementations are never called with an empty batch.
type EmbeddingFunction interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Dimensioner is implemented by embedding functions that know their output size.
type Dimensioner interface {
	Dimension() int
}

// Namer is implemented by embedding functions that report a display name.
type Namer interface {
	Name() string
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingFunc adapts a plain function to EmbeddingFunction.
type EmbeddingFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Embed calls f.
func (f EmbeddingFunc) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}

// FunctionName returns a display name for fn.
func FunctionName(fn EmbeddingFunction) string {
	if fn == nil {
		return ""
	}
	if n, ok := fn.(Namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", fn)
}

// InstructionFunction is a decorator that prepends instruction text before embedding.
type InstructionFunction struct {
	inner       EmbeddingFunction
	instruction string
}

// NewInstructionFunction creates a decorator that prepends instruction text.
func NewInstructionFunction(inner EmbeddingFunction, instruction string) *InstructionFunction {
	return &InstructionFunction{inner: inner, instruction: instruction}
}

// Embed prepends the instruction to each text and delegates to the inner function.
func (f *InstructionFunction) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = f.instruction + t
	}
	vecs, err := f.inner.Embed(ctx, prefixed)
	if err != nil {
		return nil, fmt.Errorf("instruction embed: %w", err)
	}
	return vecs, nil
}

// Dimension forwards to the inner function when it knows its size.
func (f *InstructionFunction) Dimension() int {
	if d, ok := f.inner.(Dimensioner); ok {
		return d.Dimension()
	}
	return 0
}

// Name forwards to the inner function.
func (f *InstructionFunction) Name() string { return FunctionName(f.inner) }
