package seekdb

import (
	"time"

	"github.com/kailas-cloud/seekdb/internal/domain"
	"github.com/kailas-cloud/seekdb/internal/transport/ollama"
	openaiEmb "github.com/kailas-cloud/seekdb/internal/transport/openai"
	"github.com/kailas-cloud/seekdb/internal/usecase/embedding"
)

// EmbeddingFunction turns texts into vectors, one per text, in input order.
// Implementations may also implement Dimensioner to report their output size.
type EmbeddingFunction = domain.EmbeddingFunction

// Dimensioner reports the fixed output size of an EmbeddingFunction.
type Dimensioner = domain.Dimensioner

// EmbeddingFunc adapts a plain function to EmbeddingFunction.
type EmbeddingFunc = domain.EmbeddingFunc

// DefaultEmbeddingFunction returns the local all-minilm model served by
// Ollama on localhost (384 dimensions).
func DefaultEmbeddingFunction() EmbeddingFunction {
	return ollama.NewEmbedder(ollama.Config{})
}

// OllamaConfig configures NewOllamaEmbeddingFunction.
type OllamaConfig struct {
	BaseURL   string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// NewOllamaEmbeddingFunction returns a function backed by an Ollama server.
func NewOllamaEmbeddingFunction(cfg OllamaConfig) EmbeddingFunction {
	return ollama.NewEmbedder(ollama.Config{
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		Dimension: cfg.Dimension,
		Timeout:   cfg.Timeout,
	})
}

// OpenAIConfig configures NewOpenAIEmbeddingFunction.
type OpenAIConfig struct {
	APIKey string
	// BaseURL points at any OpenAI-compatible endpoint; empty uses api.openai.com.
	BaseURL    string
	Model      string
	Dimensions int
}

// NewOpenAIEmbeddingFunction returns a function backed by an OpenAI-compatible API.
func NewOpenAIEmbeddingFunction(cfg OpenAIConfig) EmbeddingFunction {
	return openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
	})
}

// NewHashEmbeddingFunction returns a deterministic offline function deriving
// vectors from the MD5 digest of each text. dim <= 0 selects 128.
func NewHashEmbeddingFunction(dim int) EmbeddingFunction {
	return embedding.NewHashFunction(dim)
}

// WithInstruction prefixes every text with instruction before embedding.
func WithInstruction(fn EmbeddingFunction, instruction string) EmbeddingFunction {
	return domain.NewInstructionFunction(fn, instruction)
}
