// Package meta serves structured trial metadata lookups by trial id.
package meta

import (
	"context"
	"fmt"

	"github.com/trialscope/trialscope/internal/db"
	"github.com/trialscope/trialscope/internal/domain"
)

// Service resolves a trial id to its full structured metadata record.
type Service struct {
	store Store
}

// New creates a metadata service.
func New(store Store) *Service {
	return &Service{store: store}
}

// GetTrial fetches and decodes the metadata for one trial. Unmatched ids are
// omitted silently by the store, which surfaces here as ErrTrialNotFound.
func (s *Service) GetTrial(ctx context.Context, id string) (*domain.TrialMetadata, error) {
	if s.store == nil {
		return nil, domain.ErrStoreUnavailable
	}

	res, err := s.store.Get(ctx, []string{id}, db.Include{Metadatas: true})
	if err != nil {
		return nil, fmt.Errorf("get trial %s: %w", id, err)
	}
	if res == nil || len(res.Metadatas) == 0 || res.Metadatas[0] == nil {
		return nil, domain.ErrTrialNotFound
	}

	m, err := domain.DecodeTrialMetadata(res.Metadatas[0])
	if err != nil {
		return nil, fmt.Errorf("decode trial %s: %w", id, err)
	}
	return m, nil
}
