package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/naplog/sleep-server-go/internal/model"
)

type SettingsRepository interface {
	Get(ctx context.Context, key string) (*model.Setting, error)
	List(ctx context.Context) ([]model.Setting, error)
	Upsert(ctx context.Context, key, value string) (*model.Setting, error)
	Delete(ctx context.Context, key string) (bool, error)
}

type settingsRepo struct {
	db sessionDB
}

func NewSettingsRepository(db *sqlx.DB) SettingsRepository {
	return &settingsRepo{db: db}
}

func (r *settingsRepo) Get(ctx context.Context, key string) (*model.Setting, error) {
	var setting model.Setting
	err := r.db.GetContext(ctx, &setting, `
		SELECT * FROM settings WHERE key = $1
	`, key)
	return HandleNotFound(&setting, err)
}

func (r *settingsRepo) List(ctx context.Context) ([]model.Setting, error) {
	settings := []model.Setting{}
	err := r.db.SelectContext(ctx, &settings, `
		SELECT * FROM settings ORDER BY key ASC
	`)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *settingsRepo) Upsert(ctx context.Context, key, value string) (*model.Setting, error) {
	var setting model.Setting
	err := r.db.GetContext(ctx, &setting, `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()
		RETURNING *
	`, key, value)
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingsRepo) Delete(ctx context.Context, key string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM settings WHERE key = $1
	`, key)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
