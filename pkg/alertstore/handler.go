package alertstore

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/nightowl/internal/httpserver"
)

// Handler exposes the alert-ack store over HTTP.
type Handler struct {
	store *Store
}

// NewHandler creates an alert-ack Handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Routes mounts /api/alerts/acks.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Get("/{alertID}", h.handleGet)
	r.Post("/{alertID}", h.handleAck)
	r.Delete("/{alertID}", h.handleUnack)
	return r
}

type ackRequest struct {
	AckedBy string `json:"acked_by" validate:"required"`
	Note    string `json:"note"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, h.store.All())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")
	ack, ok := h.store.Get(alertID)
	if !ok {
		httpserver.RespondError(w, http.StatusNotFound, "no ack recorded for: "+alertID)
		return
	}
	httpserver.Respond(w, http.StatusOK, ack)
}

func (h *Handler) handleAck(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")
	var req ackRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := h.store.Acknowledge(alertID, req.AckedBy, req.Note); err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to record ack: "+err.Error())
		return
	}
	ack, _ := h.store.Get(alertID)
	httpserver.Respond(w, http.StatusOK, ack)
}

func (h *Handler) handleUnack(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")
	if err := h.store.Unacknowledge(alertID); err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to remove ack: "+err.Error())
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"alert_id": alertID, "acknowledged": false})
}
