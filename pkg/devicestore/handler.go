package devicestore

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wisbric/nightowl/internal/httpserver"
)

// Handler exposes the device-baseline store over HTTP.
type Handler struct {
	store *Store
}

// NewHandler creates a device-baseline Handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Routes mounts /api/devices/baseline.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Get("/{mac}", h.handleGet)
	r.Put("/{mac}", h.handleSet)
	r.Delete("/{mac}", h.handleRemove)
	return r
}

type setBaselineRequest struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	Trusted bool   `json:"trusted"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, h.store.All())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "mac")
	baseline, ok := h.store.Get(mac)
	if !ok {
		httpserver.RespondError(w, http.StatusNotFound, "no baseline recorded for: "+mac)
		return
	}
	httpserver.Respond(w, http.StatusOK, baseline)
}

func (h *Handler) handleSet(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "mac")
	var req setBaselineRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	baseline := Baseline{Name: req.Name, Role: req.Role, Trusted: req.Trusted}
	if err := h.store.Set(mac, baseline); err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to store baseline: "+err.Error())
		return
	}
	stored, _ := h.store.Get(mac)
	httpserver.Respond(w, http.StatusOK, stored)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "mac")
	if err := h.store.Remove(mac); err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, "failed to remove baseline: "+err.Error())
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"mac": mac, "removed": true})
}
