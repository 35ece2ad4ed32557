package bridgehealth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/nightowl/internal/httpserver"
)

// Handler exposes the bridge health Monitor over HTTP.
type Handler struct {
	monitor *Monitor
}

// NewHandler creates a bridge health Handler.
func NewHandler(monitor *Monitor) *Handler {
	return &Handler{monitor: monitor}
}

// Routes mounts /api/bridge-health.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleCheck)
	r.Get("/history", h.handleHistory)
	r.Get("/statistics", h.handleStatistics)
	r.Post("/bypass", h.handleTriggerBypass)
	r.Delete("/bypass", h.handleDisableBypass)
	return r
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	sample := h.monitor.CheckHealth(r.Context())
	httpserver.Respond(w, http.StatusOK, sample)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := httpserver.ParseLimitParam(r, "limit", 100, DefaultMaxHistory)
	httpserver.Respond(w, http.StatusOK, map[string]any{
		"history": h.monitor.History(limit),
	})
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, h.monitor.Statistics())
}

func (h *Handler) handleTriggerBypass(w http.ResponseWriter, r *http.Request) {
	h.monitor.TriggerBypass()
	httpserver.Respond(w, http.StatusOK, map[string]any{
		"bypass_active": true,
		"message":        "Bypass mode activated -- traffic is flowing uninspected",
	})
}

func (h *Handler) handleDisableBypass(w http.ResponseWriter, r *http.Request) {
	h.monitor.DisableBypass()
	httpserver.Respond(w, http.StatusOK, map[string]any{
		"bypass_active": false,
		"message":        "Bypass mode deactivated -- traffic inspection resumed",
	})
}
