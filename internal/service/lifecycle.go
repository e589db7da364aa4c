package service

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/naplog/sleep-server-go/internal/database"
	apperrors "github.com/naplog/sleep-server-go/internal/errors"
	"github.com/naplog/sleep-server-go/internal/model"
	"github.com/naplog/sleep-server-go/internal/notify"
	"github.com/naplog/sleep-server-go/internal/redis"
	"github.com/naplog/sleep-server-go/internal/repository"
)

const (
	msgAlreadyActive = "A sleep session is already active"
	msgNoActive      = "No active sleep session found"
)

// TxRunner runs a function inside a store transaction. *database.DB satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

var _ TxRunner = (*database.DB)(nil)

// LifecycleService enforces the single-active-session state machine. Every
// check-then-act sequence runs inside one transaction, with the partial
// unique index on open rows as the storage-level backstop against races.
type LifecycleService struct {
	txer     TxRunner
	sessions repository.SessionRepository
	notifier notify.Notifier
	cache    *redis.StatsCache
}

func NewLifecycleService(
	txer TxRunner,
	sessions repository.SessionRepository,
	notifier notify.Notifier,
	cache *redis.StatsCache,
) *LifecycleService {
	return &LifecycleService{
		txer:     txer,
		sessions: sessions,
		notifier: notifier,
		cache:    cache,
	}
}

// Current returns the active session, or nil when the baby is awake.
func (s *LifecycleService) Current(ctx context.Context) (*model.SleepSession, error) {
	session, err := s.sessions.FindActive(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return session, nil
}

func (s *LifecycleService) List(ctx context.Context, filter model.SessionFilter) ([]model.SleepSession, error) {
	sessions, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return sessions, nil
}

// Start opens a new session. Fails with Conflict if one is already active.
func (s *LifecycleService) Start(ctx context.Context, startAt *time.Time) (*model.SleepSession, error) {
	start := time.Now().UTC()
	if startAt != nil {
		start = startAt.UTC()
	}

	var session *model.SleepSession
	err := s.txer.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.sessions.WithTx(tx)

		active, err := repo.FindActive(ctx)
		if err != nil {
			return apperrors.Storage(err)
		}
		if active != nil {
			return apperrors.Conflict(msgAlreadyActive)
		}

		created, err := repo.Insert(ctx, model.CreateSessionParams{StartTime: start})
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.Conflict(msgAlreadyActive)
			}
			return apperrors.Storage(err)
		}
		session = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.notifyStateChange(ctx, notify.StateSleeping, session.StartTime, session.ID)

	log.Info().
		Int64("session_id", session.ID).
		Time("start_time", session.StartTime).
		Msg("sleep session started")

	return session, nil
}

// End closes the active session, deriving its duration. Fails with NotFound
// when nothing is active.
func (s *LifecycleService) End(ctx context.Context, endAt *time.Time) (*model.SleepSession, error) {
	end := time.Now().UTC()
	if endAt != nil {
		end = endAt.UTC()
	}

	var session *model.SleepSession
	err := s.txer.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.sessions.WithTx(tx)

		active, err := repo.FindActive(ctx)
		if err != nil {
			return apperrors.Storage(err)
		}
		if active == nil {
			return apperrors.New(apperrors.ErrCodeNotFound, msgNoActive)
		}
		if !end.After(active.StartTime) {
			return apperrors.InvalidInput("end_time", "must be after start_time")
		}

		closed, err := repo.Close(ctx, active.ID, end, model.DurationBetween(active.StartTime, end))
		if err != nil {
			return apperrors.Storage(err)
		}
		if closed == nil {
			return apperrors.New(apperrors.ErrCodeNotFound, msgNoActive)
		}
		session = closed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.notifyStateChange(ctx, notify.StateAwake, *session.EndTime, session.ID)

	log.Info().
		Int64("session_id", session.ID).
		Time("end_time", *session.EndTime).
		Int("duration_minutes", *session.DurationMinutes).
		Msg("sleep session ended")

	return session, nil
}

// Continue reopens a closed session, clearing its end bound and duration.
// The resulting notification carries the session's original start time.
func (s *LifecycleService) Continue(ctx context.Context, id int64) (*model.SleepSession, error) {
	var session *model.SleepSession
	err := s.txer.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.sessions.WithTx(tx)

		active, err := repo.FindActive(ctx)
		if err != nil {
			return apperrors.Storage(err)
		}
		if active != nil {
			return apperrors.Conflict(msgAlreadyActive)
		}

		target, err := repo.FindByID(ctx, id)
		if err != nil {
			return apperrors.Storage(err)
		}
		if target == nil {
			return apperrors.NotFound("Session")
		}

		reopened, err := repo.Reopen(ctx, id)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.Conflict(msgAlreadyActive)
			}
			return apperrors.Storage(err)
		}
		session = reopened
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.notifyStateChange(ctx, notify.StateSleeping, session.StartTime, session.ID)

	log.Info().
		Int64("session_id", session.ID).
		Time("start_time", session.StartTime).
		Msg("sleep session continued")

	return session, nil
}

// CreateBackfill inserts a fully-bounded historical session. It does not
// interact with the active session, so no conflict check applies.
func (s *LifecycleService) CreateBackfill(ctx context.Context, start, end time.Time) (*model.SleepSession, error) {
	if err := validateBounds(start, end); err != nil {
		return nil, err
	}

	start, end = start.UTC(), end.UTC()
	duration := model.DurationBetween(start, end)
	session, err := s.sessions.Insert(ctx, model.CreateSessionParams{
		StartTime:       start,
		EndTime:         &end,
		DurationMinutes: &duration,
	})
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	s.invalidateStats(ctx)

	log.Info().
		Int64("session_id", session.ID).
		Int("duration_minutes", duration).
		Msg("sleep session backfilled")

	return session, nil
}

// UpdateBounds replaces both bounds of an existing session and recomputes
// its duration.
func (s *LifecycleService) UpdateBounds(ctx context.Context, id int64, start, end time.Time) (*model.SleepSession, error) {
	if err := validateBounds(start, end); err != nil {
		return nil, err
	}

	start, end = start.UTC(), end.UTC()
	session, err := s.sessions.UpdateBounds(ctx, id, start, end, model.DurationBetween(start, end))
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}

	s.invalidateStats(ctx)

	return session, nil
}

// Delete removes a session unconditionally and returns the removed record.
func (s *LifecycleService) Delete(ctx context.Context, id int64) (*model.SleepSession, error) {
	session, err := s.sessions.Delete(ctx, id)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}

	s.invalidateStats(ctx)

	log.Info().Int64("session_id", id).Msg("sleep session deleted")

	return session, nil
}

func validateBounds(start, end time.Time) error {
	if start.IsZero() {
		return apperrors.MissingRequired("start_time")
	}
	if end.IsZero() {
		return apperrors.MissingRequired("end_time")
	}
	if !end.After(start) {
		return apperrors.InvalidInput("end_time", "must be after start_time")
	}
	return nil
}

func (s *LifecycleService) invalidateStats(ctx context.Context) {
	s.cache.Invalidate(ctx)
}

// notifyStateChange runs after the mutation has committed. Failures are
// logged and swallowed; callers never observe them as API errors.
func (s *LifecycleService) notifyStateChange(ctx context.Context, state notify.State, at time.Time, sessionID int64) {
	if err := s.notifier.StateChanged(ctx, state, at, sessionID); err != nil {
		log.Warn().
			Err(err).
			Str("state", string(state)).
			Int64("session_id", sessionID).
			Msg("state change notification failed")
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
