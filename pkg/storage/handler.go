package storage

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/nightowl/internal/httpserver"
)

// Handler exposes the Storage Manager over HTTP.
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler creates a storage Handler.
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, logger: logger}
}

// Routes mounts the storage and index-listing endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/status", h.handleStatus)
	r.Get("/retention", h.handleRetention)
	r.Post("/prune", h.handlePrune)
	return r
}

// IndicesRoutes mounts the top-level /api/indices endpoint.
func (h *Handler) IndicesRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleIndices)
	return r
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := h.manager.GetStatus(r.Context())
	httpserver.Respond(w, http.StatusOK, status)
}

func (h *Handler) handleRetention(w http.ResponseWriter, r *http.Request) {
	status := h.manager.GetStatus(r.Context())
	httpserver.Respond(w, http.StatusOK, status.Retention)
}

func (h *Handler) handlePrune(w http.ResponseWriter, r *http.Request) {
	h.manager.RunCycle(r.Context())
	status := h.manager.GetStatus(r.Context())
	httpserver.Respond(w, http.StatusOK, map[string]any{
		"result":         "prune_cycle_complete",
		"storage_status": status,
	})
}

func (h *Handler) handleIndices(w http.ResponseWriter, r *http.Request) {
	entries, err := h.manager.ListIndices(r.Context())
	if err != nil {
		httpserver.RespondError(w, http.StatusBadGateway, "failed to list indices: "+err.Error())
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{
		"indices": entries,
		"count":   len(entries),
	})
}
