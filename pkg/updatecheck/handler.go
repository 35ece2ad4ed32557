package updatecheck

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/nightowl/internal/httpserver"
)

// Handler exposes available updates over HTTP.
type Handler struct {
	checker *Checker
}

// NewHandler creates an update Handler.
func NewHandler(checker *Checker) *Handler {
	return &Handler{checker: checker}
}

// Routes mounts /api/updates.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleGetAvailable)
	r.Post("/check", h.handleCheckUpdates)
	r.Get("/{component}", h.handleGetUpdateFor)
	return r
}

func (h *Handler) handleGetAvailable(w http.ResponseWriter, r *http.Request) {
	result, err := h.checker.GetAvailable(r.Context())
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpserver.Respond(w, http.StatusOK, result)
}

func (h *Handler) handleCheckUpdates(w http.ResponseWriter, r *http.Request) {
	result, err := h.checker.CheckUpdates(r.Context())
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpserver.Respond(w, http.StatusOK, result)
}

func (h *Handler) handleGetUpdateFor(w http.ResponseWriter, r *http.Request) {
	component := chi.URLParam(r, "component")
	update, found, err := h.checker.GetUpdateFor(r.Context(), component)
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		httpserver.RespondError(w, http.StatusNotFound, "no update available for: "+component)
		return
	}
	httpserver.Respond(w, http.StatusOK, update)
}
