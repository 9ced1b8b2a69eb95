package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore implements driven.SettingsStore on the app_settings table,
// one JSONB row per scope.
type SettingsStore struct {
	db *DB
}

// NewSettingsStore creates a new SettingsStore
func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the stored settings for a scope, or domain.ErrNotFound.
func (s *SettingsStore) Get(ctx context.Context, scope string) (*domain.AppSettings, error) {
	var settingsJSON []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT settings FROM app_settings WHERE scope = $1`, scope,
	).Scan(&settingsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %q: %w", scope, err)
	}

	var settings domain.AppSettings
	if err := json.Unmarshal(settingsJSON, &settings); err != nil {
		return nil, fmt.Errorf("parse settings %q: %w", scope, err)
	}
	return &settings, nil
}

// Save overwrites the settings for a scope.
func (s *SettingsStore) Save(ctx context.Context, scope string, settings *domain.AppSettings) error {
	if settings == nil {
		return domain.ErrInvalidInput
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	query := `
		INSERT INTO app_settings (scope, settings, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (scope) DO UPDATE SET
			settings = EXCLUDED.settings,
			updated_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, scope, settingsJSON); err != nil {
		return fmt.Errorf("write settings %q: %w", scope, err)
	}
	return nil
}
