package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/heimassist/assistant-platform/internal/model"
	"github.com/heimassist/assistant-platform/internal/store"
	"github.com/heimassist/assistant-platform/pkg/logger"
)

// SettingsService reads and updates the assistant-wide preference snapshot.
type SettingsService struct {
	store store.Store
	log   *logger.Logger
}

func NewSettingsService(st store.Store, log *logger.Logger) *SettingsService {
	return &SettingsService{store: st, log: log}
}

// Get returns the current settings snapshot.
func (s *SettingsService) Get(ctx context.Context) (model.Settings, error) {
	return s.store.Settings(ctx)
}

// Update validates and persists new settings.
func (s *SettingsService) Update(ctx context.Context, in model.Settings) (model.Settings, error) {
	in.Timezone = strings.TrimSpace(in.Timezone)
	if in.Timezone == "" {
		in.Timezone = "Europe/Berlin"
	}
	if _, err := time.LoadLocation(in.Timezone); err != nil {
		return model.Settings{}, fmt.Errorf("unknown timezone %q", in.Timezone)
	}

	switch in.Units {
	case "":
		in.Units = "metric"
	case "metric", "imperial":
	default:
		return model.Settings{}, fmt.Errorf("units must be metric or imperial, got %q", in.Units)
	}

	if in.Locale == "" {
		in.Locale = "de-DE"
	}
	if (in.DefaultLat == nil) != (in.DefaultLon == nil) {
		return model.Settings{}, fmt.Errorf("default_lat and default_lon must be set together")
	}

	if err := s.store.UpdateSettings(ctx, in); err != nil {
		return model.Settings{}, fmt.Errorf("failed to update settings: %w", err)
	}
	s.log.Infow("settings updated", "timezone", in.Timezone, "units", in.Units)
	return in, nil
}
