package embedding

import (
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"strconv"

	"github.com/kailas-cloud/seekdb/internal/domain"
)

// DefaultHashDimension is the output size of a HashFunction built with dimension 0.
const DefaultHashDimension = 128

// HashFunction maps each text to a deterministic vector derived from its MD5
// digest. It needs no model and no network, which suits tests and offline use.
// Byte i of the digest becomes component i as a value in [0, 1]; longer vectors
// cycle through the digest.
type HashFunction struct {
	dim int
}

// NewHashFunction creates a hash embedding function.
func NewHashFunction(dimension int) *HashFunction {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashFunction{dim: dimension}
}

// Embed implements domain.EmbeddingFunction.
func (h *HashFunction) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		sum := md5.Sum([]byte(text)) //nolint:gosec // see above
		vec := make([]float32, h.dim)
		for j := range vec {
			vec[j] = float32(sum[j%len(sum)]) / 255
		}
		out[i] = vec
	}
	domain.UsageFromContext(ctx).Add(len(texts), 0)
	return out, nil
}

// Dimension implements domain.Dimensioner.
func (h *HashFunction) Dimension() int { return h.dim }

// Name implements domain.Namer.
func (h *HashFunction) Name() string { return "hash:" + strconv.Itoa(h.dim) }
