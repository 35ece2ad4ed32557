package reportschedule

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/nightowl/internal/httpserver"
)

// Handler exposes the report-schedule registry over HTTP.
type Handler struct {
	store *Store
}

// NewHandler creates a report-schedule Handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Routes mounts /api/reports/schedules.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Delete("/{id}", h.handleDelete)
	return r
}

type createRequest struct {
	Name       string    `json:"name" validate:"required"`
	Frequency  Frequency `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	Format     Format    `json:"format" validate:"required,oneof=json csv html"`
	Sections   []Section `json:"sections" validate:"required,min=1"`
	Recipients []string  `json:"recipients"`
	Enabled    bool      `json:"enabled"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, h.store.List())
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	sched, err := h.store.Create(CreateParams{
		Name:       req.Name,
		Frequency:  req.Frequency,
		Format:     req.Format,
		Sections:   req.Sections,
		Recipients: req.Recipients,
		Enabled:    req.Enabled,
	})
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to create schedule: "+err.Error())
		return
	}
	httpserver.Respond(w, http.StatusCreated, sched)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sched, ok := h.store.Get(id)
	if !ok {
		httpserver.RespondError(w, http.StatusNotFound, "schedule not found: "+id)
		return
	}
	httpserver.Respond(w, http.StatusOK, sched)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(id); err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to delete schedule: "+err.Error())
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
}
