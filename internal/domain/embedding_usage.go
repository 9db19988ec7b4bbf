package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage accumulates the embedding work done on behalf of one call.
// Providers add to it after every request; cached vectors count as texts
// without tokens.
type EmbeddingUsage struct {
	Texts       int
	TotalTokens int
	Used        bool
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext returns the collector of ctx, nil if none was attached.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// Add records texts embedded and tokens consumed. A nil collector ignores the call.
func (u *EmbeddingUsage) Add(texts, tokens int) {
	if u != nil {
		u.Texts += texts
		u.TotalTokens += tokens
		u.Used = true
	}
}
