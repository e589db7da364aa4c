package repository

import (
	"database/sql"
	"errors"
)

// HandleNotFound converts sql.ErrNoRows into a nil result without error.
// Lookups like FindActive treat a missing row as a normal outcome (the baby
// is simply awake), not a failure.
//
// Usage:
//
//	var session model.SleepSession
//	err := r.db.GetContext(ctx, &session, query, args...)
//	return HandleNotFound(&session, err)
func HandleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
