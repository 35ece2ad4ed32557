package smart

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/nightowl/internal/httpserver"
)

// Handler exposes SMART drive health over HTTP.
type Handler struct {
	monitor *Monitor
}

// NewHandler creates a SMART Handler.
func NewHandler(monitor *Monitor) *Handler {
	return &Handler{monitor: monitor}
}

// Routes mounts /api/smart.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleStatus)
	return r
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, h.monitor.Status(r.Context()))
}
