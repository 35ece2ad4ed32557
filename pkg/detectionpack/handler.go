package detectionpack

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/nightowl/internal/httpserver"
)

// Handler exposes the detection-pack registry over HTTP.
type Handler struct {
	store *Store
}

// NewHandler creates a detection-pack Handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Routes mounts /api/detection-packs.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Patch("/{id}", h.handleSetEnabled)
	r.Delete("/{id}", h.handleDelete)
	return r
}

type createRequest struct {
	Name        string `json:"name" validate:"required"`
	Version     string `json:"version" validate:"required"`
	Source      string `json:"source"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, h.store.List())
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	pack, err := h.store.Create(CreateParams{
		Name: req.Name, Version: req.Version, Source: req.Source,
		Description: req.Description, Enabled: req.Enabled,
	})
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to create pack: "+err.Error())
		return
	}
	httpserver.Respond(w, http.StatusCreated, pack)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pack, ok := h.store.Get(id)
	if !ok {
		httpserver.RespondError(w, http.StatusNotFound, "pack not found: "+id)
		return
	}
	httpserver.Respond(w, http.StatusOK, pack)
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req setEnabledRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	pack, found, err := h.store.SetEnabled(id, req.Enabled)
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to update pack: "+err.Error())
		return
	}
	if !found {
		httpserver.RespondError(w, http.StatusNotFound, "pack not found: "+id)
		return
	}
	httpserver.Respond(w, http.StatusOK, pack)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(id); err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to delete pack: "+err.Error())
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}
