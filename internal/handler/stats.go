package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/naplog/sleep-server-go/internal/redis"
	"github.com/naplog/sleep-server-go/internal/service"
)

// StatsProvider is the read-side surface the handler needs.
type StatsProvider interface {
	Today(ctx context.Context) (*service.TodayStats, error)
	Weekly(ctx context.Context) (*service.WeeklyStats, error)
	Overall(ctx context.Context, from, to *time.Time) (*service.OverallStats, error)
}

type StatsHandler struct {
	stats StatsProvider
	cache *redis.StatsCache
}

func NewStatsHandler(stats StatsProvider, cache *redis.StatsCache) *StatsHandler {
	return &StatsHandler{stats: stats, cache: cache}
}

func (h *StatsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Overall)
	r.Get("/today", h.Today)
	r.Get("/weekly", h.Weekly)

	return r
}

// GET /api/sleep/stats/today
func (h *StatsHandler) Today(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := redis.Key("today")

	var cached service.TodayStats
	if h.cache.Get(ctx, key, &cached) {
		writeJSON(w, http.StatusOK, &cached)
		return
	}

	stats, err := h.stats.Today(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cache.Set(ctx, key, stats)
	writeJSON(w, http.StatusOK, stats)
}

// GET /api/sleep/stats/weekly
func (h *StatsHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := redis.Key("weekly")

	var cached service.WeeklyStats
	if h.cache.Get(ctx, key, &cached) {
		writeJSON(w, http.StatusOK, &cached)
		return
	}

	stats, err := h.stats.Weekly(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cache.Set(ctx, key, stats)
	writeJSON(w, http.StatusOK, stats)
}

// GET /api/sleep/stats?start_date&end_date
func (h *StatsHandler) Overall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

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

	key := redis.Key("overall", r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date"))

	var cached service.OverallStats
	if h.cache.Get(ctx, key, &cached) {
		writeJSON(w, http.StatusOK, &cached)
		return
	}

	stats, err := h.stats.Overall(ctx, from, endOfDay(to))
	if err != nil {
		writeError(w, err)
		return
	}

	h.cache.Set(ctx, key, stats)
	writeJSON(w, http.StatusOK, stats)
}
