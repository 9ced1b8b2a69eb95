package driven

import (
	"context"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
)

// SettingsStore persists per-project app settings. The empty scope holds
// the global settings.
type SettingsStore interface {
	// Get returns the stored settings for a scope, or domain.ErrNotFound.
	Get(ctx context.Context, scope string) (*domain.AppSettings, error)

	// Save overwrites the settings for a scope.
	Save(ctx context.Context, scope string, settings *domain.AppSettings) error
}
