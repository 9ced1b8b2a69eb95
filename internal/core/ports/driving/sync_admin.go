package driving

import (
	"context"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
)

// StartSyncRequest scopes a new sync run. ProjectID/ProjectKey scope the run
// to a project; with both empty, JQLQuery is required and the run is global.
type StartSyncRequest struct {
	ProjectID  string `json:"projectId,omitempty"`
	ProjectKey string `json:"projectKey,omitempty"`
	JQLQuery   string `json:"jqlQuery,omitempty"`
	BatchSize  int    `json:"batchSize,omitempty"`
}

// SyncAdmin is the admin control surface of the sync engine.
type SyncAdmin interface {
	// StartSync begins a new sync run. Returns domain.ErrSyncAlreadyRunning
	// if one is in flight and domain.ErrFilterRequired for a global run
	// without a JQL filter.
	StartSync(ctx context.Context, req StartSyncRequest) (*domain.SyncState, error)

	// StopSync cooperatively stops the active run at the next batch boundary.
	StopSync(ctx context.Context) (*domain.SyncState, error)

	// ForceResetSync clears all run state, the run lock and the activity log.
	ForceResetSync(ctx context.Context) (*domain.SyncState, error)

	// ForceStopAllSyncs is the emergency stop: reset everything, always succeed.
	ForceStopAllSyncs(ctx context.Context) (*domain.SyncState, error)

	// GetSyncStatus returns the current state, read-repairing stale runs.
	GetSyncStatus(ctx context.Context) (*domain.SyncState, error)

	// GetSyncLog returns the activity log, newest first.
	GetSyncLog(ctx context.Context) ([]domain.SyncLogEntry, error)
}

// SettingsService manages per-project calculated-field settings.
type SettingsService interface {
	// GetSettings returns the effective settings for a project scope,
	// falling back to defaults when nothing is stored.
	GetSettings(ctx context.Context, projectID string) (*domain.AppSettings, error)

	// SaveSettings validates and persists settings for a project scope.
	SaveSettings(ctx context.Context, projectID string, settings *domain.AppSettings) (*domain.AppSettings, error)
}

// FieldEvents recalculates fields in response to issue activity.
type FieldEvents interface {
	// HandleCommentEvent recomputes and writes every calculated field on the
	// issue the comment belongs to.
	HandleCommentEvent(ctx context.Context, issueIDOrKey string) error
}
