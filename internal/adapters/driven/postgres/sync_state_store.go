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
var _ driven.SyncStateStore = (*SyncStateStore)(nil)

// SyncStateStore implements driven.SyncStateStore on the singleton
// sync_state row.
type SyncStateStore struct {
	db *DB
}

// NewSyncStateStore creates a new SyncStateStore
func NewSyncStateStore(db *DB) *SyncStateStore {
	return &SyncStateStore{db: db}
}

// Get returns the stored state, or domain.ErrNotFound when no run was ever recorded.
func (s *SyncStateStore) Get(ctx context.Context) (*domain.SyncState, error) {
	query := `
		SELECT is_running, start_time, last_updated, total_work_items,
		       processed_work_items, current_batch_start, batch_size,
		       project_id, project_key, jql_query, errors
		FROM sync_state
		WHERE id = 1
	`

	var state domain.SyncState
	var errorsJSON []byte

	err := s.db.QueryRowContext(ctx, query).Scan(
		&state.IsRunning,
		&state.StartTime,
		&state.LastUpdated,
		&state.TotalWorkItems,
		&state.ProcessedWorkItems,
		&state.CurrentBatchStart,
		&state.BatchSize,
		&state.ProjectID,
		&state.ProjectKey,
		&state.JQLQuery,
		&errorsJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read sync state: %w", err)
	}

	if err := json.Unmarshal(errorsJSON, &state.Errors); err != nil {
		return nil, fmt.Errorf("parse sync state errors: %w", err)
	}
	if state.Errors == nil {
		state.Errors = []domain.SyncError{}
	}
	return &state, nil
}

// Set overwrites the stored state.
func (s *SyncStateStore) Set(ctx context.Context, state *domain.SyncState) error {
	if state == nil {
		return domain.ErrInvalidInput
	}
	errorsJSON, err := json.Marshal(state.Errors)
	if err != nil {
		return fmt.Errorf("marshal sync state errors: %w", err)
	}

	query := `
		INSERT INTO sync_state (id, is_running, start_time, last_updated, total_work_items,
		                        processed_work_items, current_batch_start, batch_size,
		                        project_id, project_key, jql_query, errors)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			is_running = EXCLUDED.is_running,
			start_time = EXCLUDED.start_time,
			last_updated = EXCLUDED.last_updated,
			total_work_items = EXCLUDED.total_work_items,
			processed_work_items = EXCLUDED.processed_work_items,
			current_batch_start = EXCLUDED.current_batch_start,
			batch_size = EXCLUDED.batch_size,
			project_id = EXCLUDED.project_id,
			project_key = EXCLUDED.project_key,
			jql_query = EXCLUDED.jql_query,
			errors = EXCLUDED.errors
	`

	_, err = s.db.ExecContext(ctx, query,
		state.IsRunning,
		state.StartTime,
		state.LastUpdated,
		state.TotalWorkItems,
		state.ProcessedWorkItems,
		state.CurrentBatchStart,
		state.BatchSize,
		state.ProjectID,
		state.ProjectKey,
		state.JQLQuery,
		errorsJSON,
	)
	if err != nil {
		return fmt.Errorf("write sync state: %w", err)
	}
	return nil
}
