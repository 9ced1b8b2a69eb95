package driven

import (
	"context"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
)

// SyncLog is the bounded, expiring activity log of the sync engine.
// Implementations keep the newest domain.SyncLogMaxEntries entries and let
// the whole log expire after domain.SyncLogTTL without writes.
type SyncLog interface {
	// Append prepends an entry and re-arms the expiry.
	Append(ctx context.Context, entry domain.SyncLogEntry) error

	// List returns the entries, newest first.
	List(ctx context.Context) ([]domain.SyncLogEntry, error)

	// Clear drops the whole log.
	Clear(ctx context.Context) error
}
