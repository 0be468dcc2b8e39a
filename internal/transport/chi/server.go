// Package chi wires the HTTP surface: retrieval, metadata lookup, chat,
// heartbeat, and health endpoints.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/trialscope/trialscope/internal/domain"
	"github.com/trialscope/trialscope/internal/domain/filter"
	chatuc "github.com/trialscope/trialscope/internal/usecase/chat"
	healthuc "github.com/trialscope/trialscope/internal/usecase/health"
	metauc "github.com/trialscope/trialscope/internal/usecase/meta"
	retrievaluc "github.com/trialscope/trialscope/internal/usecase/retrieval"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes exposed to clients.
const (
	codeBadRequest  = "bad_request"
	codeNotFound    = "not_found"
	codeUnavailable = "dependency_unavailable"
	codeUpstream    = "upstream_error"
	codeInternal    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server exposes the trialscope API over chi.
type Server struct {
	retrieval     *retrievaluc.Service
	meta          *metauc.Service
	chat          *chatuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	retrieval *retrievaluc.Service,
	meta *metauc.Service,
	chat *chatuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		retrieval: retrieval,
		meta:      meta,
		chat:      chat,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrTopKOutOfRange, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrTrialNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrEmbedderUnavailable, http.StatusServiceUnavailable, codeUnavailable),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeUnavailable),
		sentinelHandler(domain.ErrChatUnavailable, http.StatusServiceUnavailable, codeUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeUpstream),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, codeUpstream),
	}
	return s
}

// Routes mounts all endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/heartbeat", s.Heartbeat)
	r.Get("/retrieve", s.Retrieve)
	r.Get("/meta/{itemID}", s.Meta)
	r.Post("/chat/{model}/{itemID}", s.Chat)
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// Heartbeat handles GET /heartbeat: the current timestamp in nanoseconds.
func (s *Server) Heartbeat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int64{"timestamp": time.Now().UnixNano()})
}

// Retrieve handles GET /retrieve: similarity search narrowed by the
// serialized filter set.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := q.Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "query is required")
		return
	}

	topK, err := strconv.Atoi(q.Get("top_k"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, domain.ErrTopKOutOfRange.Error())
		return
	}

	var filters filter.Set
	if serialized := q.Get("filters_serialized"); serialized != "" {
		if err := json.Unmarshal([]byte(serialized), &filters); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid filters: "+err.Error())
			return
		}
	}

	result, err := s.retrieval.Retrieve(r.Context(), query, topK, filters)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Meta handles GET /meta/{itemID}: full structured metadata for one trial.
func (s *Server) Meta(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	metadata, err := s.meta.GetTrial(r.Context(), itemID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]*domain.TrialMetadata{"metadata": metadata})
}

// chatPayload is the request body of the chat endpoint.
type chatPayload struct {
	Query string `json:"query"`
}

// Chat handles POST /chat/{model}/{itemID}: chat with a generative model
// about one trial.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")
	itemID := chi.URLParam(r, "itemID")

	var payload chatPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if payload.Query == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "query is required")
		return
	}

	response, err := s.chat.Chat(r.Context(), model, itemID, payload.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": response})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel
// error. The response message is the sentinel's own stable text, never the
// wrapped chain, so internals cannot leak.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, handle := range s.errorHandlers {
		if handle(w, err) {
			return
		}
	}

	s.logger.Error("unhandled domain error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}
