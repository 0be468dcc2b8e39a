// Package chroma implements db.Store over the Chroma HTTP API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/trialscope/trialscope/internal/db"
	"github.com/trialscope/trialscope/internal/domain"
	"github.com/trialscope/trialscope/internal/domain/filter"
)

// Compile-time check: Client implements db.Store.
var _ db.Store = (*Client)(nil)

// Config holds connection parameters for the Chroma store.
type Config struct {
	BaseURL    string // e.g. http://localhost:8000
	Collection string // collection name, resolved to an id on first use
	Timeout    time.Duration
}

// Client talks to a Chroma server over its v1 REST API.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client

	mu           sync.Mutex
	collectionID string
}

// NewClient creates a Chroma store client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		collection: cfg.Collection,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// queryRequest is the wire shape of a similarity query.
type queryRequest struct {
	QueryEmbeddings [][]float32      `json:"query_embeddings"`
	NResults        int              `json:"n_results"`
	Include         []string         `json:"include"`
	Where           filter.Predicate `json:"where,omitempty"`
}

// getRequest is the wire shape of a point lookup.
type getRequest struct {
	IDs     []string `json:"ids"`
	Include []string `json:"include"`
}

// Query implements db.Store.
func (c *Client) Query(
	ctx context.Context, embedding []float32, nResults int,
	where filter.Predicate, include db.Include,
) (*db.QueryResult, error) {
	colID, err := c.resolveCollectionID(ctx)
	if err != nil {
		return nil, err
	}

	req := queryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        nResults,
		Include:         includeFields(include),
		Where:           where,
	}

	var result db.QueryResult
	path := fmt.Sprintf("/api/v1/collections/%s/query", colID)
	if err := c.post(ctx, path, req, &result); err != nil {
		return nil, fmt.Errorf("query collection %s: %w", c.collection, err)
	}
	return &result, nil
}

// Get implements db.Store.
func (c *Client) Get(ctx context.Context, ids []string, include db.Include) (*db.GetResult, error) {
	colID, err := c.resolveCollectionID(ctx)
	if err != nil {
		return nil, err
	}

	req := getRequest{IDs: ids, Include: includeFields(include)}

	var result db.GetResult
	path := fmt.Sprintf("/api/v1/collections/%s/get", colID)
	if err := c.post(ctx, path, req, &result); err != nil {
		return nil, fmt.Errorf("get from collection %s: %w", c.collection, err)
	}
	return &result, nil
}

// Ping checks connectivity via the heartbeat endpoint.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/heartbeat", nil)
	if err != nil {
		return fmt.Errorf("build heartbeat request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("heartbeat: %w: %w", domain.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("heartbeat: unexpected status %d: %w", resp.StatusCode, domain.ErrStoreUnavailable)
	}
	return nil
}

// WaitForReady polls Ping until the store responds or the timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for store: %w", ctx.Err())
		case <-ticker.C:
			if err := c.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// resolveCollectionID looks up the collection id by name once and caches it.
func (c *Client) resolveCollectionID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.collectionID != "" {
		return c.collectionID, nil
	}

	var col struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	path := "/api/v1/collections/" + url.PathEscape(c.collection)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("build collection request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("resolve collection %s: %w: %w", c.collection, domain.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("resolve collection %s: status %d: %s: %w",
			c.collection, resp.StatusCode, bytes.TrimSpace(body), domain.ErrStoreUnavailable)
	}
	if err := json.NewDecoder(resp.Body).Decode(&col); err != nil {
		return "", fmt.Errorf("decode collection response: %w", err)
	}
	if col.ID == "" {
		return "", fmt.Errorf("collection %s has no id: %w", c.collection, domain.ErrStoreUnavailable)
	}

	c.collectionID = col.ID
	return c.collectionID, nil
}

// post sends a JSON request and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// includeFields converts an include set to the wire field list. The store
// returns null for any field absent from this list.
func includeFields(include db.Include) []string {
	fields := make([]string, 0, 2)
	if include.Documents {
		fields = append(fields, "documents")
	}
	if include.Metadatas {
		fields = append(fields, "metadatas")
	}
	return fields
}
