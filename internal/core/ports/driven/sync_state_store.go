package driven

import (
	"context"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
)

// SyncStateStore persists the single sync progress record.
type SyncStateStore interface {
	// Get returns the stored state, or domain.ErrNotFound if none was ever written.
	Get(ctx context.Context) (*domain.SyncState, error)

	// Set overwrites the stored state.
	Set(ctx context.Context, state *domain.SyncState) error
}
