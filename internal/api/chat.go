package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"repo-explorer/internal/chat"
	"repo-explorer/internal/query"
)

type GreetingResponse struct {
	Greeting      string   `json:"greeting"`
	Suggestions   []string `json:"suggestions"`
	ChatAvailable bool     `json:"chat_available"`
	Classifier    string   `json:"classifier"`
}

type SessionResponse struct {
	chat.Snapshot
	Greeting *GreetingResponse `json:"greeting,omitempty"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) greeting() *GreetingResponse {
	return &GreetingResponse{
		Greeting:      chat.Greeting(),
		Suggestions:   chat.Suggestions,
		ChatAvailable: h.chat.Available(),
		Classifier:    h.chat.Classifier(),
	}
}

func (h *Handler) Greeting(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.greeting())
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := h.chat.NewSession()
	writeJSON(w, http.StatusCreated, SessionResponse{Snapshot: sess.Snapshot(), Greeting: h.greeting()})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.chat.Session(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Snapshot: sess.Snapshot()})
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.DeleteSession(chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetFilters(w http.ResponseWriter, r *http.Request) {
	filters, ok := readJSON[query.FilterSet](w, r)
	if !ok {
		return
	}
	applied, err := h.chat.SetFilters(chi.URLParam(r, "id"), filters)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"filters": applied})
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[ChatRequest](w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	turn, err := h.chat.Ask(r.Context(), chi.URLParam(r, "id"), req.Message)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.chat.Overview(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (h *Handler) Repositories(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	res, err := h.chat.Repositories(chi.URLParam(r, "id"), limit, r.URL.Query().Get("q"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"repositories": res.Rows,
		"total":        res.Total,
	})
}

// writeServiceError maps chat service errors to status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, query.ErrEmptyDataset):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, query.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
