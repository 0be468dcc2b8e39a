package meta

import (
	"context"

	"github.com/trialscope/trialscope/internal/db"
)

// Store is the point-lookup contract consumed by the metadata service.
type Store interface {
	Get(ctx context.Context, ids []string, include db.Include) (*db.GetResult, error)
}
