package updateexec

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/nightowl/internal/httpserver"
)

// Handler exposes the update executor over HTTP.
type Handler struct {
	executor *Executor
}

// NewHandler creates an update-executor Handler.
func NewHandler(executor *Executor) *Handler {
	return &Handler{executor: executor}
}

// Routes serves the executor endpoints (apply, status, history, rollback)
// under /api/updates.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/apply", h.handleApplyUpdate)
	r.Get("/status", h.handleGetStatus)
	r.Get("/history", h.handleGetHistory)
	r.Post("/rollback/{component}", h.handleRollback)
	return r
}

type applyUpdateRequest struct {
	Components []string `json:"components"`
}

func (h *Handler) handleApplyUpdate(w http.ResponseWriter, r *http.Request) {
	var req applyUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	batch := h.executor.ApplyUpdate(r.Context(), req.Components)
	httpserver.Respond(w, http.StatusOK, batch)
}

func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, h.executor.GetStatus())
}

func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, h.executor.GetHistory())
}

func (h *Handler) handleRollback(w http.ResponseWriter, r *http.Request) {
	component := chi.URLParam(r, "component")
	result := h.executor.Rollback(r.Context(), component)
	httpserver.Respond(w, http.StatusOK, result)
}
