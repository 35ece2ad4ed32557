package investigation

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/nightowl/internal/httpserver"
)

// Handler exposes the investigation registry over HTTP.
type Handler struct {
	store *Store
}

// NewHandler creates an investigation Handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Routes mounts /api/investigations.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Patch("/{id}/status", h.handleSetStatus)
	r.Post("/{id}/alerts/{alertID}", h.handleLinkAlert)
	r.Post("/{id}/devices/{deviceIP}", h.handleLinkDevice)
	r.Post("/{id}/notes", h.handleAddNote)
	return r
}

type createRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity" validate:"required,oneof=low medium high critical"`
	AlertIDs    []string `json:"alert_ids"`
	DeviceIPs   []string `json:"device_ips"`
	Tags        []string `json:"tags"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, h.store.List())
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	inv, err := h.store.Create(CreateParams{
		Title:       req.Title,
		Description: req.Description,
		Severity:    req.Severity,
		AlertIDs:    req.AlertIDs,
		DeviceIPs:   req.DeviceIPs,
		Tags:        req.Tags,
	})
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to create investigation: "+err.Error())
		return
	}
	httpserver.Respond(w, http.StatusCreated, inv)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	inv, ok := h.store.Get(id)
	if !ok {
		httpserver.RespondError(w, http.StatusNotFound, "investigation not found: "+id)
		return
	}
	httpserver.Respond(w, http.StatusOK, inv)
}

type setStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=open in_progress resolved closed"`
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req setStatusRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	inv, err := h.store.SetStatus(id, req.Status)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	httpserver.Respond(w, http.StatusOK, inv)
}

func (h *Handler) handleLinkAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	inv, err := h.store.LinkAlert(id, chi.URLParam(r, "alertID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	httpserver.Respond(w, http.StatusOK, inv)
}

func (h *Handler) handleLinkDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	inv, err := h.store.LinkDevice(id, chi.URLParam(r, "deviceIP"))
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	httpserver.Respond(w, http.StatusOK, inv)
}

type addNoteRequest struct {
	Content string `json:"content" validate:"required"`
}

func (h *Handler) handleAddNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req addNoteRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	inv, err := h.store.AddNote(id, req.Content)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	httpserver.Respond(w, http.StatusOK, inv)
}
