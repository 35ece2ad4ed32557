package tshark

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/nightowl/internal/httpserver"
)

// Handler exposes the TShark gateway over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates a TShark Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts /api/tshark.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/analyze", h.handleAnalyze)
	r.Get("/version", h.handleVersion)
	r.Get("/protocols", h.handleProtocols)
	r.Get("/fields", h.handleFields)
	r.Get("/available", h.handleAvailable)
	return r
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		if _, ok := err.(*ValidationError); ok {
			httpserver.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		httpserver.RespondError(w, http.StatusBadGateway, err.Error())
		return
	}
	httpserver.Respond(w, http.StatusOK, result)
}

func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, map[string]any{
		"tshark_version": h.service.Version(r.Context()),
	})
}

func (h *Handler) handleProtocols(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, map[string]any{
		"protocols": h.service.Protocols(r.Context()),
	})
}

func (h *Handler) handleFields(w http.ResponseWriter, r *http.Request) {
	protocol := r.URL.Query().Get("protocol")
	httpserver.Respond(w, http.StatusOK, map[string]any{
		"fields": h.service.Fields(r.Context(), protocol),
	})
}

func (h *Handler) handleAvailable(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, h.service.IsAvailable(r.Context()))
}
