package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/trialscope/trialscope/internal/db"
	"github.com/trialscope/trialscope/internal/domain"
	"github.com/trialscope/trialscope/internal/domain/filter"
	chatuc "github.com/trialscope/trialscope/internal/usecase/chat"
	healthuc "github.com/trialscope/trialscope/internal/usecase/health"
	metauc "github.com/trialscope/trialscope/internal/usecase/meta"
	retrievaluc "github.com/trialscope/trialscope/internal/usecase/retrieval"
)

// --- Mocks ---

type stubStore struct {
	queryResult *db.QueryResult
	getResult   *db.GetResult
	err         error
	queries     int
}

func (s *stubStore) Query(
	_ context.Context, _ []float32, _ int, _ filter.Predicate, _ db.Include,
) (*db.QueryResult, error) {
	s.queries++
	return s.queryResult, s.err
}

func (s *stubStore) Get(_ context.Context, _ []string, _ db.Include) (*db.GetResult, error) {
	return s.getResult, s.err
}

func (s *stubStore) Ping(_ context.Context) error { return s.err }

type stubEmbedder struct{ err error }

func (s *stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1}}, nil
}

type stubGenerator struct{ response string }

func (s *stubGenerator) Generate(
	_ context.Context, _, _ string, _ []chatuc.Turn, _ string,
) (string, error) {
	return s.response, nil
}

func newTestRouter(t *testing.T, store *stubStore, gen chatuc.Generator) http.Handler {
	t.Helper()

	metaSvc := metauc.New(store)
	server := NewServer(
		retrievaluc.New(store, &stubEmbedder{}),
		metaSvc,
		chatuc.New(metaSvc, gen),
		healthuc.New(store, nil),
		zap.NewNop(),
	)

	r := chirouter.NewRouter()
	server.Routes(r)
	return r
}

func defaultStore() *stubStore {
	return &stubStore{
		queryResult: &db.QueryResult{
			IDs:       [][]string{{"NCT001"}},
			Documents: [][]string{{"a trial about X"}},
			Metadatas: [][]map[string]any{{{"study_phases": "PHASE2"}}},
		},
		getResult: &db.GetResult{
			IDs:       []string{"NCT001"},
			Metadatas: []map[string]any{{"short_title": "A Study of X"}},
		},
	}
}

func doRequest(t *testing.T, h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return e
}

// --- Tests ---

func TestHeartbeat(t *testing.T) {
	r := newTestRouter(t, defaultStore(), nil)

	rec := doRequest(t, r, http.MethodGet, "/heartbeat", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["timestamp"] <= 0 {
		t.Errorf("timestamp = %d", body["timestamp"])
	}
}

func TestRetrieve_OK(t *testing.T) {
	r := newTestRouter(t, defaultStore(), nil)

	rec := doRequest(t, r, http.MethodGet, "/retrieve?query=cancer&top_k=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		IDs       []string `json:"ids"`
		Documents []string `json:"documents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.IDs) != 1 || body.IDs[0] != "NCT001" {
		t.Errorf("ids = %v", body.IDs)
	}
	if len(body.Documents) != 1 || body.Documents[0] != "a trial about X" {
		t.Errorf("documents = %v", body.Documents)
	}
}

func TestRetrieve_WithFilters(t *testing.T) {
	store := defaultStore()
	r := newTestRouter(t, store, nil)

	filters := url.QueryEscape(`{"studyPhases":["PHASE2"]}`)
	rec := doRequest(t, r, http.MethodGet, "/retrieve?query=cancer&top_k=5&filters_serialized="+filters, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if store.queries != 2 {
		t.Errorf("post-filter path issued %d queries, want 2", store.queries)
	}
}

func TestRetrieve_TopKViolations(t *testing.T) {
	r := newTestRouter(t, defaultStore(), nil)

	for _, target := range []string{
		"/retrieve?query=x&top_k=0",
		"/retrieve?query=x&top_k=31",
		"/retrieve?query=x&top_k=abc",
		"/retrieve?query=x",
	} {
		rec := doRequest(t, r, http.MethodGet, target, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
			continue
		}
		e := decodeError(t, rec)
		if e.Message != "required 0 < top_k <= 30" {
			t.Errorf("%s: message = %q", target, e.Message)
		}
	}
}

func TestRetrieve_MissingQuery(t *testing.T) {
	r := newTestRouter(t, defaultStore(), nil)

	rec := doRequest(t, r, http.MethodGet, "/retrieve?top_k=5", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRetrieve_MalformedFilters(t *testing.T) {
	r := newTestRouter(t, defaultStore(), nil)

	rec := doRequest(t, r, http.MethodGet, "/retrieve?query=x&top_k=5&filters_serialized=%7Bnope", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != codeBadRequest {
		t.Errorf("code = %q", e.Code)
	}
}

func TestRetrieve_EmbedderFailure(t *testing.T) {
	store := defaultStore()
	metaSvc := metauc.New(store)
	server := NewServer(
		retrievaluc.New(store, &stubEmbedder{err: domain.ErrEmbeddingProviderError}),
		metaSvc,
		chatuc.New(metaSvc, nil),
		healthuc.New(store, nil),
		zap.NewNop(),
	)
	r := chirouter.NewRouter()
	server.Routes(r)

	rec := doRequest(t, r, http.MethodGet, "/retrieve?query=x&top_k=5", "")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != codeUpstream {
		t.Errorf("code = %q", e.Code)
	}
}

func TestMeta_OK(t *testing.T) {
	r := newTestRouter(t, defaultStore(), nil)

	rec := doRequest(t, r, http.MethodGet, "/meta/NCT001", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Metadata struct {
			ShortTitle string `json:"shortTitle"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Metadata.ShortTitle != "A Study of X" {
		t.Errorf("shortTitle = %q", body.Metadata.ShortTitle)
	}
}

func TestMeta_NotFound(t *testing.T) {
	store := defaultStore()
	store.getResult = &db.GetResult{IDs: []string{}, Metadatas: []map[string]any{}}
	r := newTestRouter(t, store, nil)

	rec := doRequest(t, r, http.MethodGet, "/meta/NCT404", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != codeNotFound {
		t.Errorf("code = %q", e.Code)
	}
}

func TestChat_OK(t *testing.T) {
	r := newTestRouter(t, defaultStore(), &stubGenerator{response: "It studies X."})

	rec := doRequest(t, r, http.MethodPost, "/chat/gemini-1.5-flash/NCT001",
		`{"query": "What is this trial about?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["response"] != "It studies X." {
		t.Errorf("response = %q", body["response"])
	}
}

func TestChat_Unconfigured(t *testing.T) {
	r := newTestRouter(t, defaultStore(), nil)

	rec := doRequest(t, r, http.MethodPost, "/chat/m/NCT001", `{"query": "q"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestChat_BadBody(t *testing.T) {
	r := newTestRouter(t, defaultStore(), &stubGenerator{})

	for name, body := range map[string]string{
		"malformed":   `{nope`,
		"empty query": `{"query": ""}`,
	} {
		rec := doRequest(t, r, http.MethodPost, "/chat/m/NCT001", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestHealth_Degraded(t *testing.T) {
	store := defaultStore()
	store.err = domain.ErrStoreUnavailable
	r := newTestRouter(t, store, nil)

	rec := doRequest(t, r, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHealth_OK(t *testing.T) {
	r := newTestRouter(t, defaultStore(), nil)

	rec := doRequest(t, r, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}
