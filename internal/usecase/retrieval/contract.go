package retrieval

import (
	"context"

	"github.com/trialscope/trialscope/internal/db"
	"github.com/trialscope/trialscope/internal/domain"
	"github.com/trialscope/trialscope/internal/domain/filter"
)

// Store is the similarity-query contract consumed by the retrieval service.
type Store interface {
	Query(
		ctx context.Context, embedding []float32, nResults int,
		where filter.Predicate, include db.Include,
	) (*db.QueryResult, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
