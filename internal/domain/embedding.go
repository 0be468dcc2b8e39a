package domain

import "context"

// EmbeddingResult is a query embedding with provider token accounting.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text into a fixed-length embedding. Implementations must
// be deterministic for identical input within a process lifetime, and the
// vector length must match the store's configured dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}
