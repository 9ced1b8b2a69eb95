package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.SettingsService = (*SettingsManager)(nil)

const (
	settingsGlobalKey   = "appSettings"
	settingsScopePrefix = "appSettings_id_"
	settingsCacheTTL    = time.Hour
)

// SettingsManager serves and persists per-project visibility settings,
// with a cache in front of the durable store. Reads never fail: any
// trouble falls back to the all-comments defaults.
type SettingsManager struct {
	store   driven.SettingsStore
	cache   driven.Cache
	tracker driven.TrackerAPI
	logger  *slog.Logger
}

// NewSettingsManager creates a new SettingsManager.
func NewSettingsManager(store driven.SettingsStore, cache driven.Cache, tracker driven.TrackerAPI, logger *slog.Logger) *SettingsManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsManager{store: store, cache: cache, tracker: tracker, logger: logger}
}

func settingsScope(projectID string) string {
	if projectID == "" {
		return settingsGlobalKey
	}
	return settingsScopePrefix + projectID
}

// ResolveProjectID maps a project key onto its ID. Failures resolve to the
// empty (global) scope.
func (s *SettingsManager) ResolveProjectID(ctx context.Context, projectKey string) string {
	if projectKey == "" {
		return ""
	}
	project, err := s.tracker.GetProject(ctx, projectKey)
	if err != nil {
		s.logger.Warn("failed to resolve project ID", "project_key", projectKey, "error", err)
		return ""
	}
	return project.ID
}

// GetSettings returns the effective settings for a project scope.
func (s *SettingsManager) GetSettings(ctx context.Context, projectID string) (*domain.AppSettings, error) {
	scope := settingsScope(projectID)

	if cached, err := s.cache.Get(ctx, scope); err == nil {
		var settings domain.AppSettings
		if json.Unmarshal([]byte(cached), &settings) == nil {
			return domain.DefaultAppSettings().Merge(&settings), nil
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("settings cache read failed", "scope", scope, "error", err)
	}

	settings, err := s.store.Get(ctx, scope)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("settings read failed, serving defaults", "scope", scope, "error", err)
		}
		return domain.DefaultAppSettings(), nil
	}

	if data, err := json.Marshal(settings); err == nil {
		if err := s.cache.Set(ctx, scope, string(data), settingsCacheTTL); err != nil {
			s.logger.Warn("settings cache write failed", "scope", scope, "error", err)
		}
	}
	return domain.DefaultAppSettings().Merge(settings), nil
}

// SaveSettings validates, merges with the stored settings, persists and
// refreshes the cache.
func (s *SettingsManager) SaveSettings(ctx context.Context, projectID string, settings *domain.AppSettings) (*domain.AppSettings, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings payload: %w", err)
	}
	scope := settingsScope(projectID)

	existing, err := s.store.Get(ctx, scope)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to read existing settings: %w", err)
	}
	merged := settings
	if existing != nil {
		merged = existing.Merge(settings)
	}

	if err := s.store.Save(ctx, scope, merged); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	if data, err := json.Marshal(merged); err == nil {
		if err := s.cache.Set(ctx, scope, string(data), settingsCacheTTL); err != nil {
			s.logger.Warn("settings cache refresh failed", "scope", scope, "error", err)
		}
	}
	return merged, nil
}
