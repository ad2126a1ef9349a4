package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// ErrInvalidSettings is returned when a settings update is out of range.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings bounds.
const (
	MaxTracesLimit     = 100_000
	MaxRetentionHours  = 24 * 30
	MinValidateTimeout = time.Second
	MaxValidateTimeout = time.Minute
)

// SettingsService reads and updates runtime settings.
type SettingsService struct {
	store driven.SettingsStore
}

// NewSettingsService creates a SettingsService.
func NewSettingsService(store driven.SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

// Get returns the current settings.
func (s *SettingsService) Get(ctx context.Context) (model.Settings, error) {
	settings, err := s.store.Get(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// Update validates and stores settings. Zero fields keep their current value.
func (s *SettingsService) Update(ctx context.Context, update model.Settings) (model.Settings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return model.Settings{}, err
	}

	if update.MaxTraces != 0 {
		if update.MaxTraces < 1 || update.MaxTraces > MaxTracesLimit {
			return model.Settings{}, fmt.Errorf("%w: max traces must be between 1 and %d", ErrInvalidSettings, MaxTracesLimit)
		}
		current.MaxTraces = update.MaxTraces
	}
	if update.RetentionHours != 0 {
		if update.RetentionHours < 1 || update.RetentionHours > MaxRetentionHours {
			return model.Settings{}, fmt.Errorf("%w: retention must be between 1 and %d hours", ErrInvalidSettings, MaxRetentionHours)
		}
		current.RetentionHours = update.RetentionHours
	}
	if update.ValidateTimeout != 0 {
		if update.ValidateTimeout < MinValidateTimeout || update.ValidateTimeout > MaxValidateTimeout {
			return model.Settings{}, fmt.Errorf("%w: validate timeout must be between %s and %s", ErrInvalidSettings, MinValidateTimeout, MaxValidateTimeout)
		}
		current.ValidateTimeout = update.ValidateTimeout
	}

	if err := s.store.Set(ctx, current); err != nil {
		return model.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return current, nil
}
