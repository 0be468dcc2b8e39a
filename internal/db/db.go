// Package db defines the store-neutral contract for the trial vector store:
// similarity query with an optional native predicate, and point lookup by id.
package db

import (
	"context"
	"errors"

	"github.com/trialscope/trialscope/internal/domain/filter"
)

// ErrKeyNotFound signals a missing cache key.
var ErrKeyNotFound = errors.New("key not found")

// Include selects which payload fields a store call returns. A field that is
// not requested comes back as nil in the raw response — never as an empty
// list — so consumers must normalize (see QueryResult accessors).
type Include struct {
	Documents bool
	Metadatas bool
}

// QueryResult is the raw response of a similarity query. The outer dimension
// corresponds to query vectors; this service always sends exactly one.
// Documents and Metadatas are nil when not included in the request.
type QueryResult struct {
	IDs       [][]string
	Documents [][]string
	Metadatas [][]map[string]any
}

// RowCount returns the number of hits for the single query vector.
func (r *QueryResult) RowCount() int {
	if r == nil || len(r.IDs) == 0 {
		return 0
	}
	return len(r.IDs[0])
}

// RowIDs returns the hit ids for the single query vector, never nil.
func (r *QueryResult) RowIDs() []string {
	if r == nil || len(r.IDs) == 0 {
		return []string{}
	}
	return r.IDs[0]
}

// RowDocuments returns the hit documents, normalized to an empty slice when
// documents were not requested or the store returned null.
func (r *QueryResult) RowDocuments() []string {
	if r == nil || len(r.Documents) == 0 || r.Documents[0] == nil {
		return []string{}
	}
	return r.Documents[0]
}

// RowMetadatas returns the hit metadatas, normalized to an empty slice when
// metadatas were not requested or the store returned null.
func (r *QueryResult) RowMetadatas() []map[string]any {
	if r == nil || len(r.Metadatas) == 0 || r.Metadatas[0] == nil {
		return []map[string]any{}
	}
	return r.Metadatas[0]
}

// GetResult is the raw response of a point lookup. Unmatched ids are omitted
// silently; Documents and Metadatas are nil when not included.
type GetResult struct {
	IDs       []string
	Documents []string
	Metadatas []map[string]any
}

// Store is the vector store collaborator consumed by the retrieval engine.
// Implementations are shared, process-lifetime resources.
type Store interface {
	// Query runs a similarity search for the top nResults matches under the
	// optional native predicate.
	Query(ctx context.Context, embedding []float32, nResults int, where filter.Predicate, include Include) (*QueryResult, error)
	// Get performs a point lookup by ids.
	Get(ctx context.Context, ids []string, include Include) (*GetResult, error)
	// Ping checks store connectivity.
	Ping(ctx context.Context) error
}
