package model

import (
	"math"
	"time"
)

// SleepSession is a single sleep interval. A nil EndTime marks the session
// as active; DurationMinutes is derived and never client-settable.
type SleepSession struct {
	ID              int64      `db:"id" json:"id"`
	StartTime       time.Time  `db:"start_time" json:"start_time"`
	EndTime         *time.Time `db:"end_time" json:"end_time"`
	DurationMinutes *int       `db:"duration_minutes" json:"duration_minutes"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Active reports whether the session has no end bound.
func (s *SleepSession) Active() bool {
	return s.EndTime == nil
}

// DurationBetween derives the stored duration from a pair of bounds:
// elapsed seconds divided by 60, rounded to the nearest minute.
func DurationBetween(start, end time.Time) int {
	return int(math.Round(end.Sub(start).Seconds() / 60))
}

type CreateSessionParams struct {
	StartTime       time.Time
	EndTime         *time.Time
	DurationMinutes *int
}

// SessionFilter narrows session listings. From/To bound start_time; a zero
// Limit means no row limit.
type SessionFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}
