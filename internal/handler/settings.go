package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/naplog/sleep-server-go/internal/errors"
	"github.com/naplog/sleep-server-go/internal/model"
)

type SettingsService interface {
	List(ctx context.Context) ([]model.Setting, error)
	Get(ctx context.Context, key string) (*model.Setting, error)
	Set(ctx context.Context, key, value string) (*model.Setting, error)
	Delete(ctx context.Context, key string) error
}

type SettingsHandler struct {
	settings SettingsService
}

func NewSettingsHandler(settings SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

func (h *SettingsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{key}", h.Get)
	r.Put("/{key}", h.Put)
	r.Delete("/{key}", h.Delete)

	return r
}

type putSettingRequest struct {
	Value *string `json:"value"`
}

// GET /api/settings
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// GET /api/settings/{key}
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	setting, err := h.settings.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

// PUT /api/settings/{key}
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req putSettingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Value == nil {
		writeError(w, apperrors.MissingRequired("value"))
		return
	}

	setting, err := h.settings.Set(r.Context(), chi.URLParam(r, "key"), *req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

// DELETE /api/settings/{key}
func (h *SettingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.settings.Delete(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Setting deleted"})
}
