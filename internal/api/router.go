package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"repo-explorer/internal/chat"
	"repo-explorer/internal/dataset"
	"repo-explorer/internal/elastic"
	"repo-explorer/internal/query"
)

const maxBodyBytes = 1 << 20

// Searcher is the full-text backend behind /search. A nil Searcher disables
// those endpoints.
type Searcher interface {
	Search(ctx context.Context, text string, preds []query.Predicate, top int) ([]elastic.Hit, int, error)
	Facets(ctx context.Context, dim dataset.Dimension, preds []query.Predicate, size int) ([]elastic.Bucket, error)
}

type Handler struct {
	chat    *chat.Service
	search  Searcher
	metrics http.Handler
	logger  *zap.Logger
}

func NewHandler(svc *chat.Service, search Searcher, metrics http.Handler, logger *zap.Logger) *Handler {
	return &Handler{chat: svc, search: search, metrics: metrics, logger: logger}
}

// Routes builds the HTTP router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, h.requestLogger, middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}
	r.Get("/greeting", h.Greeting)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)
			r.Put("/filters", h.SetFilters)
			r.Post("/chat", h.Chat)
			r.Get("/overview", h.Overview)
			r.Get("/repositories", h.Repositories)
		})
	})

	r.Post("/search/text", h.FullTextSearch)
	r.Get("/search/facets", h.Facets)
	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return v, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
