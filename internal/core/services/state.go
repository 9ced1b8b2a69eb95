package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven"
)

const (
	updateLockTTL         = 30 * time.Second
	updateLockMaxAttempts = 5
	updateLockRetryBase   = 100 * time.Millisecond
)

// StateManager mediates all reads and writes of the sync progress record.
// Reads lazily repair stale runs; batch-boundary updates go through a short
// advisory lock so concurrent deliveries cannot interleave lost updates.
type StateManager struct {
	store  driven.SyncStateStore
	lock   driven.DistributedLock
	logger *slog.Logger
}

// NewStateManager creates a new StateManager.
func NewStateManager(store driven.SyncStateStore, lock driven.DistributedLock, logger *slog.Logger) *StateManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateManager{store: store, lock: lock, logger: logger}
}

// Get returns the current state. A run that has gone stale is cleared and
// the repaired state persisted before returning. A missing record yields
// the idle default without persisting it.
func (m *StateManager) Get(ctx context.Context) (*domain.SyncState, error) {
	state, err := m.store.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewIdleSyncState(), nil
		}
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	}
	if state.IsStale(time.Now()) {
		m.logger.Warn("clearing stale sync state",
			"last_updated", state.LastUpdated,
			"project_id", state.ProjectID)
		state.ClearStale()
		if err := m.store.Set(ctx, state); err != nil {
			return nil, fmt.Errorf("failed to persist repaired sync state: %w", err)
		}
	}
	return state, nil
}

// Set stamps the update time and persists the state.
func (m *StateManager) Set(ctx context.Context, state *domain.SyncState) error {
	state.LastUpdated = domain.NowMillis()
	if err := m.store.Set(ctx, state); err != nil {
		return fmt.Errorf("failed to persist sync state: %w", err)
	}
	return nil
}

// IsAnyRunning reports whether the raw stored state says a run is in flight.
func (m *StateManager) IsAnyRunning(ctx context.Context) (bool, error) {
	state, err := m.store.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return state.IsRunning, nil
}

// StateUpdate carries the deltas applied at a batch boundary.
type StateUpdate struct {
	// ProcessedIncrement is added to the processed counter.
	ProcessedIncrement int

	// NewBatchStart advances the resume cursor, but never backwards.
	NewBatchStart int
}

// AtomicUpdate applies a batch-boundary update under a short advisory lock.
// Lock acquisition is retried with jittered backoff; after the attempts run
// out the update proceeds anyway, trading a small race window for liveness.
func (m *StateManager) AtomicUpdate(ctx context.Context, projectID string, update StateUpdate) (*domain.SyncState, error) {
	lockName := fmt.Sprintf("state_update_%s", projectID)

	acquired := false
	for attempt := 0; attempt < updateLockMaxAttempts; attempt++ {
		ok, err := m.lock.Acquire(ctx, lockName, updateLockTTL)
		if err != nil {
			m.logger.Error("update lock attempt failed", "attempt", attempt, "error", err)
		} else if ok {
			acquired = true
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(updateLockRetryBase + rand.N(updateLockRetryBase)):
		}
	}
	if !acquired {
		m.logger.Warn("could not acquire update lock, proceeding anyway",
			"lock", lockName, "attempts", updateLockMaxAttempts)
	} else {
		defer func() {
			if err := m.lock.Release(ctx, lockName); err != nil {
				m.logger.Error("failed to release update lock", "lock", lockName, "error", err)
			}
		}()
	}

	state, err := m.Get(ctx)
	if err != nil {
		return nil, err
	}
	if update.ProcessedIncrement != 0 {
		state.ProcessedWorkItems += update.ProcessedIncrement
	}
	if update.NewBatchStart > state.CurrentBatchStart {
		state.CurrentBatchStart = update.NewBatchStart
	}
	if err := m.Set(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}
