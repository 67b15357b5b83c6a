// Package chi exposes the retrieval and ingestion API over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/passage"
	"github.com/kailas-cloud/ragpipe/internal/domain/retrieval/result"
	"github.com/kailas-cloud/ragpipe/internal/logger"
	"github.com/kailas-cloud/ragpipe/internal/metrics"
	healthuc "github.com/kailas-cloud/ragpipe/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragpipe/internal/usecase/ingest"
	retrievaluc "github.com/kailas-cloud/ragpipe/internal/usecase/retrieval"
)

const maxBatchSize = 100

// Error codes returned in the response body.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codePassageNotFound  = "passage_not_found"
	codeEmbeddingError   = "embedding_provider_error"
	codeStoreUnavailable = "store_unavailable"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers for the retrieval API.
type Server struct {
	retrieval     *retrievaluc.Pipeline
	ingest        *ingestuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	apiKeys       []string
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	retrieval *retrievaluc.Pipeline,
	ingest *ingestuc.Service,
	health *healthuc.Service,
	apiKeys []string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		retrieval: retrieval,
		ingest:    ingest,
		health:    health,
		apiKeys:   apiKeys,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidPassage, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrPassageNotFound, http.StatusNotFound, codePassageNotFound),
		sentinelHandler(domain.ErrQueryEmbedding, http.StatusBadGateway, codeEmbeddingError),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingError),
		sentinelHandler(domain.ErrStoreQuery, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
	return s
}

// Router assembles the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chirouter.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(s.wideEventMiddleware)
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(s.apiKeys))

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chirouter.Router) {
		r.Post("/retrieve", s.Retrieve)
		r.Route("/passages", func(r chirouter.Router) {
			r.Post("/batch", s.BatchUpsertPassages)
			r.Put("/{id}", s.UpsertPassage)
			r.Get("/{id}", s.GetPassage)
			r.Delete("/{id}", s.DeletePassage)
		})
	})

	return r
}

type retrieveRequest struct {
	Query string `json:"query"`
}

type resultItem struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
	Source  string  `json:"source"`
	Version string  `json:"version,omitempty"`
}

type retrieveResponse struct {
	Items []resultItem `json:"items"`
	Total int          `json:"total"`
}

// Retrieve handles POST /api/v1/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Query is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.retrieval.Retrieve(ctx, req.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]resultItem, len(results))
	for i := range results {
		items[i] = resultToItem(&results[i])
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, retrieveResponse{
		Items: items,
		Total: len(items),
	})
}

type upsertPassageRequest struct {
	Text    string `json:"text"`
	Source  string `json:"source"`
	Version string `json:"version,omitempty"`
}

type passageResponse struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Source  string `json:"source"`
	Version string `json:"version,omitempty"`
}

// UpsertPassage handles PUT /api/v1/passages/{id}.
func (s *Server) UpsertPassage(w http.ResponseWriter, r *http.Request) {
	id := chirouter.URLParam(r, "id")

	var req upsertPassageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	p, err := passage.New(id, req.Text, req.Source, req.Version)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	if err := s.ingest.Upsert(ctx, p); err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, passageToResponse(&p))
}

// GetPassage handles GET /api/v1/passages/{id}.
func (s *Server) GetPassage(w http.ResponseWriter, r *http.Request) {
	id := chirouter.URLParam(r, "id")

	p, err := s.ingest.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, passageToResponse(&p))
}

// DeletePassage handles DELETE /api/v1/passages/{id}.
func (s *Server) DeletePassage(w http.ResponseWriter, r *http.Request) {
	id := chirouter.URLParam(r, "id")

	if err := s.ingest.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type batchUpsertRequest struct {
	Passages []batchPassageItem `json:"passages"`
}

type batchPassageItem struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Source  string `json:"source"`
	Version string `json:"version,omitempty"`
}

type batchUpsertResponse struct {
	Count int `json:"count"`
}

// BatchUpsertPassages handles POST /api/v1/passages/batch.
func (s *Server) BatchUpsertPassages(w http.ResponseWriter, r *http.Request) {
	var req batchUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Passages) == 0 || len(req.Passages) > maxBatchSize {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			fmt.Sprintf("passages count must be between 1 and %d", maxBatchSize))
		return
	}

	passages := make([]passage.Passage, 0, len(req.Passages))
	for _, item := range req.Passages {
		p, err := passage.New(item.ID, item.Text, item.Source, item.Version)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed,
				fmt.Sprintf("passage %q: %s", item.ID, safeDomainMessage(err)))
			return
		}
		passages = append(passages, p)
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	if err := s.ingest.UpsertBatch(ctx, passages); err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, batchUpsertResponse{Count: len(passages)})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func (s *Server) wideEventMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := middleware.GetReqID(r.Context())
		if requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}

		// Per-request logger with request_id
		reqLogger := s.logger.With(zap.String("request_id", requestID))
		ctx := logger.ContextWithLogger(r.Context(), reqLogger)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		reqLogger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", r.RemoteAddr),
			zap.Int("response_bytes", ww.BytesWritten()),
		)
	})
}

// recoverer converts panics into JSON 500 responses.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic in handler",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func resultToItem(r *result.Result) resultItem {
	return resultItem{
		ID:      r.ID(),
		Score:   r.Score(),
		Text:    r.Text(),
		Source:  r.Source(),
		Version: r.Version(),
	}
}

func passageToResponse(p *passage.Passage) passageResponse {
	return passageResponse{
		ID:      p.ID(),
		Text:    p.Text(),
		Source:  p.Source(),
		Version: p.Version(),
	}
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidPassage,
		domain.ErrVectorDimMismatch,
		domain.ErrPassageNotFound,
		domain.ErrQueryEmbedding,
		domain.ErrEmbeddingProviderError,
		domain.ErrStoreQuery,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
