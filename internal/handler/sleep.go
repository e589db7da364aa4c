package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/naplog/sleep-server-go/internal/errors"
	"github.com/naplog/sleep-server-go/internal/model"
)

// SleepService is the lifecycle surface the handler needs.
type SleepService interface {
	Current(ctx context.Context) (*model.SleepSession, error)
	Start(ctx context.Context, startAt *time.Time) (*model.SleepSession, error)
	End(ctx context.Context, endAt *time.Time) (*model.SleepSession, error)
	Continue(ctx context.Context, id int64) (*model.SleepSession, error)
	List(ctx context.Context, filter model.SessionFilter) ([]model.SleepSession, error)
	CreateBackfill(ctx context.Context, start, end time.Time) (*model.SleepSession, error)
	UpdateBounds(ctx context.Context, id int64, start, end time.Time) (*model.SleepSession, error)
	Delete(ctx context.Context, id int64) (*model.SleepSession, error)
}

type SleepHandler struct {
	sleep SleepService
}

func NewSleepHandler(sleep SleepService) *SleepHandler {
	return &SleepHandler{sleep: sleep}
}

func (h *SleepHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/current", h.Current)
	r.Post("/start", h.Start)
	r.Post("/end", h.End)
	r.Get("/sessions", h.List)
	r.Post("/sessions", h.CreateBackfill)
	r.Put("/sessions/{id}", h.Update)
	r.Delete("/sessions/{id}", h.Delete)
	r.Post("/sessions/{id}/continue", h.Continue)

	return r
}

type startRequest struct {
	StartTime *time.Time `json:"start_time"`
}

type endRequest struct {
	EndTime *time.Time `json:"end_time"`
}

type sessionBoundsRequest struct {
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

type deleteResponse struct {
	Message string              `json:"message"`
	Session *model.SleepSession `json:"session"`
}

// GET /api/sleep/current
func (h *SleepHandler) Current(w http.ResponseWriter, r *http.Request) {
	session, err := h.sleep.Current(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	// null body when the baby is awake
	writeJSON(w, http.StatusOK, session)
}

// POST /api/sleep/start
func (h *SleepHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.sleep.Start(r.Context(), req.StartTime)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// POST /api/sleep/end
func (h *SleepHandler) End(w http.ResponseWriter, r *http.Request) {
	var req endRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.sleep.End(r.Context(), req.EndTime)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// POST /api/sleep/sessions/{id}/continue
func (h *SleepHandler) Continue(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := h.sleep.Continue(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// GET /api/sleep/sessions?start_date&end_date&limit
func (h *SleepHandler) List(w http.ResponseWriter, r *http.Request) {
	from, err := dateQueryParam(r, "start_date")
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := dateQueryParam(r, "end_date")
	if err != nil {
		writeError(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, apperrors.InvalidInput("limit", "must be a non-negative integer"))
			return
		}
	}

	sessions, err := h.sleep.List(r.Context(), model.SessionFilter{
		From:  from,
		To:    endOfDay(to),
		Limit: limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// POST /api/sleep/sessions
func (h *SleepHandler) CreateBackfill(w http.ResponseWriter, r *http.Request) {
	var req sessionBoundsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.sleep.CreateBackfill(r.Context(), *req.StartTime, *req.EndTime)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// PUT /api/sleep/sessions/{id}
func (h *SleepHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req sessionBoundsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.sleep.UpdateBounds(r.Context(), id, *req.StartTime, *req.EndTime)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// DELETE /api/sleep/sessions/{id}
func (h *SleepHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := h.sleep.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{
		Message: "Session deleted",
		Session: session,
	})
}

func (req *sessionBoundsRequest) validate() error {
	if req.StartTime == nil {
		return apperrors.MissingRequired("start_time")
	}
	if req.EndTime == nil {
		return apperrors.MissingRequired("end_time")
	}
	return nil
}
