// Package ollama embeds texts with a local Ollama model.
package ollama

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/seekdb/internal/domain"
)

const (
	// DefaultModel is the default embedding model (384 dimensions).
	DefaultModel = "all-minilm"
	// DefaultDimension is the output size of DefaultModel.
	DefaultDimension = 384
	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Config holds the Ollama connection settings.
type Config struct {
	BaseURL string
	Model   string
	// Dimension is the model's output size, 0 to probe it on first use.
	Dimension int
	Timeout   time.Duration
}

// Embedder calls Ollama's /api/embed endpoint.
type Embedder struct {
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings      [][]float32 `json:"embeddings"`
	PromptEvalCount int         `json:"prompt_eval_count"`
}

// NewEmbedder creates an Ollama embedding function. Empty fields take the defaults;
// the default model reports DefaultDimension.
func NewEmbedder(cfg Config) *Embedder {
	e := &Embedder{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	if e.baseURL == "" {
		e.baseURL = DefaultBaseURL
	}
	if e.model == "" {
		e.model = DefaultModel
	}
	if e.dimension == 0 && e.model == DefaultModel {
		e.dimension = DefaultDimension
	}
	if cfg.Timeout == 0 {
		e.httpClient.Timeout = 120 * time.Second
	}
	return e
}

// Embed implements domain.EmbeddingFunction with one request per call.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	body, err := json.Marshal(embedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %w", domain.ErrEmbeddingProviderError, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrEmbeddingProviderError, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %w", domain.ErrEmbeddingProviderError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: ollama returned status %d: %s",
			domain.ErrEmbeddingProviderError, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrEmbeddingProviderError, err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts",
			domain.ErrEmbeddingFunctionContract, len(out.Embeddings), len(texts))
	}
	domain.UsageFromContext(ctx).Add(len(texts), out.PromptEvalCount)
	return out.Embeddings, nil
}

// Dimension reports the configured output size, 0 if unknown.
func (e *Embedder) Dimension() int { return e.dimension }

// Name returns the model name.
func (e *Embedder) Name() string { return "ollama:" + e.model }

// HealthCheck verifies the server answers /api/version.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/version", http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama version: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama version: status %d", resp.StatusCode)
	}
	return nil
}
