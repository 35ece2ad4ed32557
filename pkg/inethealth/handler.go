package inethealth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/nightowl/internal/httpserver"
)

// Handler exposes the internet health Monitor over HTTP.
type Handler struct {
	monitor *Monitor
}

// NewHandler creates an internet health Handler.
func NewHandler(monitor *Monitor) *Handler {
	return &Handler{monitor: monitor}
}

// Routes mounts /api/internet-health.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleCurrentStatus)
	r.Get("/check", h.handleCheck)
	r.Get("/history", h.handleHistory)
	r.Get("/statistics", h.handleStatistics)
	return r
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	sample := h.monitor.CheckHealth(r.Context())
	httpserver.Respond(w, http.StatusOK, sample)
}

func (h *Handler) handleCurrentStatus(w http.ResponseWriter, r *http.Request) {
	status, timestamp := h.monitor.CurrentStatus()
	httpserver.Respond(w, http.StatusOK, map[string]any{
		"status":    status,
		"timestamp": timestamp,
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := httpserver.ParseLimitParam(r, "limit", 100, DefaultHistorySize)
	httpserver.Respond(w, http.StatusOK, map[string]any{
		"history": h.monitor.History(limit),
	})
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, h.monitor.Statistics())
}
