package chat

import (
	"context"

	"github.com/trialscope/trialscope/internal/domain"
)

// Turn is one exchange entry in a session history. Role is "user" or "model".
type Turn struct {
	Role string
	Text string
}

// Generator produces a model response given the system instruction, the
// session history so far, and the new user query.
type Generator interface {
	Generate(ctx context.Context, model, system string, history []Turn, query string) (string, error)
}

// MetaReader resolves trial metadata for session seeding.
type MetaReader interface {
	GetTrial(ctx context.Context, id string) (*domain.TrialMetadata, error)
}
