// Package retrieval implements the trial retrieval engine: filter
// compilation, similarity search, post-filtering, and result reconciliation.
package retrieval

import (
	"context"
	"fmt"

	"github.com/trialscope/trialscope/internal/db"
	"github.com/trialscope/trialscope/internal/domain"
	"github.com/trialscope/trialscope/internal/domain/filter"
	"github.com/trialscope/trialscope/internal/metrics"
)

// MaxTopK bounds the result count per request to keep post-filtering cost
// bounded.
const MaxTopK = 30

// Result is the reconciled retrieval response: equal-length id and document
// sequences with one-to-one positional correspondence.
type Result struct {
	IDs       []string `json:"ids"`
	Documents []string `json:"documents"`
}

// Service orchestrates a retrieval request against the embedding and store
// collaborators. Both are process-lifetime resources owned by the service.
type Service struct {
	store Store
	embed Embedder
}

// New creates a retrieval service.
func New(store Store, embed Embedder) *Service {
	return &Service{store: store, embed: embed}
}

// Retrieve embeds the query, runs the similarity search under the compiled
// pushdown predicate, and post-filters when a dimension cannot be pushed
// down.
//
// When post-filtering is active, a second metadata-augmented query is issued
// at the same topK and its result replaces the first. Attrition is not
// backfilled: the response may legitimately hold fewer than topK rows. Both
// queries reuse the same embedding.
func (s *Service) Retrieve(ctx context.Context, query string, topK int, filters filter.Set) (Result, error) {
	if topK <= 0 || topK > MaxTopK {
		return Result{}, domain.ErrTopKOutOfRange
	}
	if s.embed == nil {
		return Result{}, domain.ErrEmbedderUnavailable
	}
	if s.store == nil {
		return Result{}, domain.ErrStoreUnavailable
	}

	where, needsPostFilter := filter.Compile(filters)

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.store.Query(ctx, emb.Embedding, topK, where, db.Include{Documents: true})
	if err != nil {
		return Result{}, fmt.Errorf("query store: %w", err)
	}

	if !needsPostFilter {
		metrics.RetrievalQueriesTotal.WithLabelValues("pushdown").Inc()
		return reconcile(hits), nil
	}

	metrics.RetrievalQueriesTotal.WithLabelValues("post_filter").Inc()

	augmented, err := s.store.Query(ctx, emb.Embedding, topK, where,
		db.Include{Documents: true, Metadatas: true})
	if err != nil {
		return Result{}, fmt.Errorf("query store with metadata: %w", err)
	}

	return postFilter(ctx, augmented, filters), nil
}
