package ilm

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/nightowl/internal/httpserver"
)

// Handler exposes ILM policy application over HTTP.
type Handler struct {
	applier *Applier
}

// NewHandler creates an ILM Handler.
func NewHandler(applier *Applier) *Handler {
	return &Handler{applier: applier}
}

// Routes mounts /api/ilm.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/apply", h.handleApplyAll)
	return r
}

func (h *Handler) handleApplyAll(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, h.applier.ApplyAll(r.Context()))
}
