package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/naplog/sleep-server-go/internal/repository"
)

// Watchdog periodically checks the active session and warns when it has been
// open implausibly long, which usually means someone forgot to end it.
// Sessions are never closed automatically.
type Watchdog struct {
	sessions  repository.SessionRepository
	interval  time.Duration
	threshold time.Duration
	done      chan struct{}
}

func NewWatchdog(sessions repository.SessionRepository, interval, threshold time.Duration) *Watchdog {
	return &Watchdog{
		sessions:  sessions,
		interval:  interval,
		threshold: threshold,
		done:      make(chan struct{}),
	}
}

func (j *Watchdog) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("session watchdog started")
}

func (j *Watchdog) Stop() {
	close(j.done)
	log.Info().Msg("session watchdog stopped")
}

func (j *Watchdog) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.check()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.check()
		}
	}
}

func (j *Watchdog) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	active, err := j.sessions.FindActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("watchdog: failed to check active session")
		return
	}
	if active == nil {
		return
	}

	if open := time.Since(active.StartTime); open > j.threshold {
		log.Warn().
			Int64("session_id", active.ID).
			Time("start_time", active.StartTime).
			Dur("open_for", open).
			Msg("active sleep session open for a suspiciously long time")
	}
}
