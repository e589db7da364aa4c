package service

import (
	"context"

	apperrors "github.com/naplog/sleep-server-go/internal/errors"
	"github.com/naplog/sleep-server-go/internal/model"
	"github.com/naplog/sleep-server-go/internal/repository"
)

type SettingsService struct {
	settings repository.SettingsRepository
}

func NewSettingsService(settings repository.SettingsRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

func (s *SettingsService) List(ctx context.Context) ([]model.Setting, error) {
	settings, err := s.settings.List(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return settings, nil
}

func (s *SettingsService) Get(ctx context.Context, key string) (*model.Setting, error) {
	setting, err := s.settings.Get(ctx, key)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if setting == nil {
		return nil, apperrors.NotFound("Setting")
	}
	return setting, nil
}

func (s *SettingsService) Set(ctx context.Context, key, value string) (*model.Setting, error) {
	setting, err := s.settings.Upsert(ctx, key, value)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return setting, nil
}

func (s *SettingsService) Delete(ctx context.Context, key string) error {
	deleted, err := s.settings.Delete(ctx, key)
	if err != nil {
		return apperrors.Storage(err)
	}
	if !deleted {
		return apperrors.NotFound("Setting")
	}
	return nil
}
