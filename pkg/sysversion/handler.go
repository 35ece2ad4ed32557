package sysversion

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/nightowl/internal/httpserver"
)

// Handler exposes the version inventory over HTTP.
type Handler struct {
	manager *Manager
}

// NewHandler creates a version Handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// Routes mounts /api/versions.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleGetVersions)
	r.Post("/scan", h.handleScan)
	r.Get("/{name}", h.handleGetComponent)
	return r
}

func (h *Handler) handleGetVersions(w http.ResponseWriter, r *http.Request) {
	inventory, err := h.manager.GetVersions(r.Context())
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpserver.Respond(w, http.StatusOK, inventory)
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	inventory, err := h.manager.ScanVersions(r.Context())
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpserver.Respond(w, http.StatusOK, inventory)
}

func (h *Handler) handleGetComponent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	component, found, err := h.manager.GetComponent(r.Context(), name)
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		httpserver.RespondError(w, http.StatusNotFound, "unknown component: "+name)
		return
	}
	httpserver.Respond(w, http.StatusOK, component)
}
