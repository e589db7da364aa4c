package handler

import (
	"context"
	"net/http"

	"github.com/naplog/sleep-server-go/internal/config"
	"github.com/naplog/sleep-server-go/internal/database"
	apperrors "github.com/naplog/sleep-server-go/internal/errors"
)

type HealthHandler struct {
	db *database.DB
}

func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.DBPingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		writeError(w, apperrors.Storage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
