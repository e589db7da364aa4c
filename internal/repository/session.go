package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/naplog/sleep-server-go/internal/model"
)

// psq builds queries with Postgres dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type SessionRepository interface {
	Insert(ctx context.Context, params model.CreateSessionParams) (*model.SleepSession, error)
	FindByID(ctx context.Context, id int64) (*model.SleepSession, error)
	// FindActive returns the open session, or nil if none. At most one open
	// row can exist (partial unique index), but the lookup tolerates historic
	// inconsistencies by always selecting the latest by start time.
	FindActive(ctx context.Context) (*model.SleepSession, error)
	// List returns sessions ordered by start time descending. Filter bounds
	// apply to start_time; From is inclusive, To exclusive.
	List(ctx context.Context, filter model.SessionFilter) ([]model.SleepSession, error)
	UpdateBounds(ctx context.Context, id int64, start, end time.Time, durationMinutes int) (*model.SleepSession, error)
	Close(ctx context.Context, id int64, end time.Time, durationMinutes int) (*model.SleepSession, error)
	Reopen(ctx context.Context, id int64) (*model.SleepSession, error)
	// Delete removes the session and returns it, or nil if the id is unknown.
	Delete(ctx context.Context, id int64) (*model.SleepSession, error)

	// Aggregate queries consumed by the stats service.
	LatestWakeUpBetween(ctx context.Context, from, to time.Time) (*model.SleepSession, error)
	CompletedStartedAfter(ctx context.Context, after time.Time) ([]model.SleepSession, error)
	CompletedSince(ctx context.Context, since time.Time) ([]model.SleepSession, error)
	Overall(ctx context.Context, from, to *time.Time) (*model.OverallRow, error)
	DailyTotals(ctx context.Context, since time.Time) ([]model.DailyRow, error)
	HourlyDistribution(ctx context.Context, from, to *time.Time) ([]model.HourlyRow, error)

	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

// sessionDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sessionDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type sessionRepo struct {
	db sessionDB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) Insert(ctx context.Context, params model.CreateSessionParams) (*model.SleepSession, error) {
	var session model.SleepSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sleep_sessions (start_time, end_time, duration_minutes)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.StartTime, params.EndTime, params.DurationMinutes)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) FindByID(ctx context.Context, id int64) (*model.SleepSession, error) {
	var session model.SleepSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sleep_sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindActive(ctx context.Context) (*model.SleepSession, error) {
	var session model.SleepSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sleep_sessions
		WHERE end_time IS NULL
		ORDER BY start_time DESC, id DESC
		LIMIT 1
	`)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) List(ctx context.Context, filter model.SessionFilter) ([]model.SleepSession, error) {
	builder := psq.Select("*").
		From("sleep_sessions").
		OrderBy("start_time DESC", "id DESC")

	if filter.From != nil {
		builder = builder.Where(sq.GtOrEq{"start_time": *filter.From})
	}
	if filter.To != nil {
		builder = builder.Where(sq.Lt{"start_time": *filter.To})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	sessions := []model.SleepSession{}
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) UpdateBounds(ctx context.Context, id int64, start, end time.Time, durationMinutes int) (*model.SleepSession, error) {
	var session model.SleepSession
	err := r.db.GetContext(ctx, &session, `
		UPDATE sleep_sessions SET
			start_time = $2,
			end_time = $3,
			duration_minutes = $4,
			updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id, start, end, durationMinutes)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Close(ctx context.Context, id int64, end time.Time, durationMinutes int) (*model.SleepSession, error) {
	var session model.SleepSession
	err := r.db.GetContext(ctx, &session, `
		UPDATE sleep_sessions SET
			end_time = $2,
			duration_minutes = $3,
			updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id, end, durationMinutes)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Reopen(ctx context.Context, id int64) (*model.SleepSession, error) {
	var session model.SleepSession
	err := r.db.GetContext(ctx, &session, `
		UPDATE sleep_sessions SET
			end_time = NULL,
			duration_minutes = NULL,
			updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Delete(ctx context.Context, id int64) (*model.SleepSession, error) {
	var session model.SleepSession
	err := r.db.GetContext(ctx, &session, `
		DELETE FROM sleep_sessions WHERE id = $1
		RETURNING *
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) LatestWakeUpBetween(ctx context.Context, from, to time.Time) (*model.SleepSession, error) {
	var session model.SleepSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sleep_sessions
		WHERE end_time IS NOT NULL
		AND end_time >= $1 AND end_time < $2
		ORDER BY end_time DESC, id DESC
		LIMIT 1
	`, from, to)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) CompletedStartedAfter(ctx context.Context, after time.Time) ([]model.SleepSession, error) {
	sessions := []model.SleepSession{}
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sleep_sessions
		WHERE end_time IS NOT NULL
		AND start_time > $1
		ORDER BY start_time ASC, id ASC
	`, after)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// CompletedSince returns completed sessions whose start time falls on or
// after since, oldest first. Bucketing happens in the stats service.
func (r *sessionRepo) CompletedSince(ctx context.Context, since time.Time) ([]model.SleepSession, error) {
	sessions := []model.SleepSession{}
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sleep_sessions
		WHERE end_time IS NOT NULL
		AND start_time >= $1
		ORDER BY start_time ASC, id ASC
	`, since)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) Overall(ctx context.Context, from, to *time.Time) (*model.OverallRow, error) {
	builder := psq.Select(
		"COUNT(*)::int AS session_count",
		"COALESCE(SUM(duration_minutes), 0)::int AS total_minutes",
		"COALESCE(AVG(duration_minutes), 0)::float8 AS avg_minutes",
		"COALESCE(MAX(duration_minutes), 0)::int AS max_minutes",
	).From("sleep_sessions").
		Where("end_time IS NOT NULL")

	if from != nil {
		builder = builder.Where(sq.GtOrEq{"start_time": *from})
	}
	if to != nil {
		builder = builder.Where(sq.Lt{"start_time": *to})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var row model.OverallRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *sessionRepo) DailyTotals(ctx context.Context, since time.Time) ([]model.DailyRow, error) {
	rows := []model.DailyRow{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT
			to_char(start_time AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
			COUNT(*)::int AS session_count,
			COALESCE(SUM(duration_minutes), 0)::int AS total_minutes
		FROM sleep_sessions
		WHERE end_time IS NOT NULL AND start_time >= $1
		GROUP BY day
		ORDER BY day ASC
	`, since)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *sessionRepo) HourlyDistribution(ctx context.Context, from, to *time.Time) ([]model.HourlyRow, error) {
	builder := psq.Select(
		"EXTRACT(HOUR FROM start_time AT TIME ZONE 'UTC')::int AS hour",
		"COUNT(*)::int AS session_count",
		"COALESCE(AVG(duration_minutes), 0)::float8 AS avg_minutes",
	).From("sleep_sessions").
		Where("end_time IS NOT NULL")

	if from != nil {
		builder = builder.Where(sq.GtOrEq{"start_time": *from})
	}
	if to != nil {
		builder = builder.Where(sq.Lt{"start_time": *to})
	}

	query, args, err := builder.GroupBy("hour").OrderBy("hour ASC").ToSql()
	if err != nil {
		return nil, err
	}

	rows := []model.HourlyRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
