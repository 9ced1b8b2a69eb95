package driven

import (
	"context"
	"time"
)

// Cache is a TTL'd string cache for derived data that can be re-fetched:
// the field catalog, settings, role IDs and per-project agent rosters.
type Cache interface {
	// Get returns the cached value, or domain.ErrNotFound if absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value with the given TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes a key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}
