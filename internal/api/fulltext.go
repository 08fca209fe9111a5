package api

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"repo-explorer/internal/dataset"
	"repo-explorer/internal/elastic"
	"repo-explorer/internal/query"
)

type TextSearchRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
	Top       int    `json:"limit"`
}

type TextSearchResponse struct {
	Results []elastic.Hit `json:"result"`
	Total   int           `json:"total"`
}

// sessionPredicates returns the filters of the session, or none when id is
// empty.
func (h *Handler) sessionPredicates(id string) ([]query.Predicate, error) {
	if id == "" {
		return nil, nil
	}
	sess, err := h.chat.Session(id)
	if err != nil {
		return nil, err
	}
	return sess.Filters().Predicates(), nil
}

func (h *Handler) FullTextSearch(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		writeError(w, http.StatusServiceUnavailable, elastic.ErrDisabled.Error())
		return
	}
	req, ok := readJSON[TextSearchRequest](w, r)
	if !ok {
		return
	}
	if req.Top <= 0 {
		req.Top = 5
	}
	preds, err := h.sessionPredicates(req.SessionID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	results, total, err := h.search.Search(r.Context(), req.Query, preds, req.Top)
	if err != nil {
		h.logger.Error("Full-text search failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, TextSearchResponse{Results: results, Total: total})
}

// Facets handles GET /search/facets?dimension=language&size=10&session_id=...
func (h *Handler) Facets(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		writeError(w, http.StatusServiceUnavailable, elastic.ErrDisabled.Error())
		return
	}
	q := r.URL.Query()
	dim, ok := dataset.ParseDimension(q.Get("dimension"))
	if !ok {
		writeError(w, http.StatusBadRequest, "dimension must be one of university, language, license, type")
		return
	}
	size := 10
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "size must be a positive integer")
			return
		}
		size = n
	}
	preds, err := h.sessionPredicates(q.Get("session_id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	buckets, err := h.search.Facets(r.Context(), dim, preds, size)
	if err != nil {
		h.logger.Error("Facet search failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"dimension": dim, "buckets": buckets})
}
