package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/metrics"
)

// DefaultMaxBatchSize is the largest batch handed to the inner function in one call.
const DefaultMaxBatchSize = 256

// InstrumentedFunction wraps an EmbeddingFunction with chunking, metrics and logging.
type InstrumentedFunction struct {
	inner    domain.EmbeddingFunction
	provider string
	maxBatch int
	logger   *zap.Logger
}

// NewInstrumentedFunction wraps inner. maxBatch <= 0 uses DefaultMaxBatchSize.
func NewInstrumentedFunction(
	inner domain.EmbeddingFunction, provider string, maxBatch int, logger *zap.Logger,
) *InstrumentedFunction {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedFunction{inner: inner, provider: provider, maxBatch: maxBatch, logger: logger}
}

// Embed splits texts into chunks of at most maxBatch and concatenates the results in order.
func (p *InstrumentedFunction) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	start := time.Now()
	out := make([][]float32, 0, len(texts))
	for offset := 0; offset < len(texts); offset += p.maxBatch {
		chunk := texts[offset:min(offset+p.maxBatch, len(texts))]
		vecs, err := p.inner.Embed(ctx, chunk)
		if err == nil && len(vecs) != len(chunk) {
			err = fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbeddingFunctionContract, len(vecs), len(chunk))
		}
		if err != nil {
			p.observe(start, len(texts), err)
			p.logger.Error("Embedding request failed",
				zap.String("provider", p.provider),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			return nil, fmt.Errorf("embed: %w", err)
		}
		out = append(out, vecs...)
	}
	p.observe(start, len(texts), nil)

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
	)
	return out, nil
}

func (p *InstrumentedFunction) observe(start time.Time, n int, err error) {
	metrics.EmbeddingRequestDuration.WithLabelValues(p.provider).Observe(time.Since(start).Seconds())
	metrics.EmbeddingTextsTotal.WithLabelValues(p.provider).Add(float64(n))
	if err == nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(p.provider, "ok").Inc()
		return
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues(p.provider, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(p.provider, errorType(err)).Inc()
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, domain.ErrEmbeddingFunctionContract):
		return "contract"
	default:
		return "provider"
	}
}

// Dimension forwards to the inner function when it knows its size.
func (p *InstrumentedFunction) Dimension() int {
	if d, ok := p.inner.(domain.Dimensioner); ok {
		return d.Dimension()
	}
	return 0
}

// Name reports the inner function's name.
func (p *InstrumentedFunction) Name() string { return domain.FunctionName(p.inner) }

// HealthCheck forwards to the inner function when it supports health checks.
func (p *InstrumentedFunction) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
