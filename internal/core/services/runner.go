package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven"
)

const (
	syncLockName = "syncLock"
	syncLockTTL  = time.Hour

	batchLockPrefix = "batchLock_"
	batchLockTTL    = 10 * time.Minute
)

// SyncRunner executes sync jobs delivered by the queue. A full-sync job
// walks every batch window sequentially inside one invocation; legacy
// payloads carry a single window and rely on batch locks to dedupe
// redelivery.
type SyncRunner struct {
	fetcher    *IssueFetcher
	calculator *FieldCalculator
	state      *StateManager
	lock       driven.DistributedLock
	syncLog    driven.SyncLog
	logger     *slog.Logger
}

// SyncRunnerConfig holds dependencies for SyncRunner.
type SyncRunnerConfig struct {
	Fetcher    *IssueFetcher
	Calculator *FieldCalculator
	State      *StateManager
	Lock       driven.DistributedLock
	SyncLog    driven.SyncLog
	Logger     *slog.Logger
}

// NewSyncRunner creates a new SyncRunner.
func NewSyncRunner(cfg SyncRunnerConfig) *SyncRunner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncRunner{
		fetcher:    cfg.Fetcher,
		calculator: cfg.Calculator,
		state:      cfg.State,
		lock:       cfg.Lock,
		syncLog:    cfg.SyncLog,
		logger:     logger,
	}
}

// ProcessJob dispatches a queue payload to the full-sync or legacy path.
func (r *SyncRunner) ProcessJob(ctx context.Context, payload *domain.SyncJobPayload) (*domain.SyncResult, error) {
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sync payload: %w", err)
	}
	if payload.IsFullSync() {
		return r.processFullSync(ctx, payload)
	}
	return r.processSingleBatch(ctx, payload)
}

// fieldProjection resolves the field catalog and builds the search
// projection of "key" plus every Flowzira field ID.
func (r *SyncRunner) fieldProjection(ctx context.Context) ([]domain.FieldDescriptor, []string, error) {
	catalog, err := r.calculator.FlowziraFields(ctx, false)
	if err != nil {
		return nil, nil, err
	}
	projection := make([]string, 0, len(catalog)+1)
	projection = append(projection, "key")
	for _, field := range catalog {
		projection = append(projection, field.ID)
	}
	return catalog, projection, nil
}

// processIssue computes every Flowzira field present on the issue, all
// concurrently, then writes the collected values in one combined update.
func (r *SyncRunner) processIssue(ctx context.Context, issue domain.Issue, catalog []domain.FieldDescriptor, settings *domain.FlatAppSettings) error {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
		updates  = make(map[string]any)
	)
	for _, field := range catalog {
		if !issue.HasField(field.ID) {
			continue
		}
		wg.Add(1)
		go func(field domain.FieldDescriptor) {
			defer wg.Done()
			value, err := r.calculator.CalculateFieldValue(ctx, &issue, field, false, settings, 0)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			updates[field.ID] = value
		}(field)
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	if len(updates) == 0 {
		return nil
	}
	if err := r.calculator.tracker.UpdateIssueFields(ctx, issue.Key, updates); err != nil {
		return fmt.Errorf("failed to update issue %s: %w", issue.Key, err)
	}
	return nil
}

// processWindow runs processIssue over the window with bounded concurrency.
func (r *SyncRunner) processWindow(ctx context.Context, issues []domain.Issue, catalog []domain.FieldDescriptor, settings *domain.FlatAppSettings) error {
	for i := 0; i < len(issues); i += domain.IssueConcurrencyLimit {
		end := i + domain.IssueConcurrencyLimit
		if end > len(issues) {
			end = len(issues)
		}
		chunk := issues[i:end]

		var (
			mu       sync.Mutex
			wg       sync.WaitGroup
			firstErr error
		)
		for _, issue := range chunk {
			wg.Add(1)
			go func(issue domain.Issue) {
				defer wg.Done()
				if err := r.processIssue(ctx, issue, catalog, settings); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}(issue)
		}
		wg.Wait()
		if firstErr != nil {
			return firstErr
		}
	}
	return nil
}

func (r *SyncRunner) processFullSync(ctx context.Context, payload *domain.SyncJobPayload) (*domain.SyncResult, error) {
	state, err := r.state.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !state.IsRunning {
		return &domain.SyncResult{Skipped: true, SkipReason: "sync_not_running"}, nil
	}

	catalog, projection, err := r.fieldProjection(ctx)
	if err != nil {
		return nil, r.failRun(ctx, payload, 0, err)
	}

	batchCount := (payload.TotalWorkItems + payload.BatchSize - 1) / payload.BatchSize
	totalProcessed := 0

	for batchIndex := 0; batchIndex < batchCount; batchIndex++ {
		startIndex := batchIndex * payload.BatchSize

		state, err = r.state.Get(ctx)
		if err != nil {
			return nil, err
		}
		if !state.IsRunning {
			r.logger.Info("sync stopped, halting at batch boundary", "batch_index", batchIndex)
			break
		}

		window, err := r.fetcher.Fetch(ctx, FetchRequest{
			StartAt:    startIndex,
			MaxResults: payload.BatchSize,
			ProjectID:  payload.ProjectID,
			ProjectKey: payload.ProjectKey,
			Fields:     projection,
			JQLQuery:   payload.JQLQuery,
		})
		if err != nil {
			return nil, r.failRun(ctx, payload, batchIndex, err)
		}

		if err := r.processWindow(ctx, window.Issues, catalog, payload.AppSettings); err != nil {
			return nil, r.failRun(ctx, payload, batchIndex, err)
		}

		totalProcessed += len(window.Issues)
		if _, err := r.state.AtomicUpdate(ctx, payload.ProjectID, StateUpdate{
			ProcessedIncrement: len(window.Issues),
			NewBatchStart:      startIndex + len(window.Issues),
		}); err != nil {
			return nil, r.failRun(ctx, payload, batchIndex, err)
		}

		r.appendLog(ctx, domain.NewSyncLogEntry(domain.LogTypeBatchComplete, payload.ProjectID, payload.ProjectKey, map[string]any{
			"processed":    len(window.Issues),
			"batchIndex":   batchIndex + 1,
			"totalBatches": batchCount,
		}))
	}

	final, err := r.state.Get(ctx)
	if err != nil {
		return nil, err
	}
	completed := final.Completed()
	if completed {
		r.appendLog(ctx, domain.NewSyncLogEntry(domain.LogTypeComplete, payload.ProjectID, payload.ProjectKey, map[string]any{
			"message": "Full sync completed",
		}))
		final.IsRunning = false
		if err := r.state.Set(ctx, final); err != nil {
			return nil, err
		}
		if err := r.lock.Release(ctx, syncLockName); err != nil {
			r.logger.Error("failed to release sync lock", "error", err)
		}
	}

	return &domain.SyncResult{Processed: totalProcessed, Completed: completed}, nil
}

// failRun records a batch failure, halts the run and frees the run lock.
func (r *SyncRunner) failRun(ctx context.Context, payload *domain.SyncJobPayload, batchIndex int, cause error) error {
	r.logger.Error("sync batch failed", "batch_index", batchIndex, "error", cause)

	r.appendLog(ctx, domain.NewSyncLogEntry(domain.LogTypeError, payload.ProjectID, payload.ProjectKey, map[string]any{
		"batchIndex": batchIndex + 1,
		"error":      cause.Error(),
	}))

	state, err := r.state.Get(ctx)
	if err != nil {
		r.logger.Error("failed to read state while failing run", "error", err)
		state = domain.NewIdleSyncState()
	}
	state.IsRunning = false
	state.Errors = append(state.Errors, domain.SyncError{BatchIndex: batchIndex, Error: cause.Error()})
	if err := r.state.Set(ctx, state); err != nil {
		r.logger.Error("failed to persist failed state", "error", err)
	}
	if err := r.lock.Release(ctx, syncLockName); err != nil {
		r.logger.Error("failed to release sync lock", "error", err)
	}
	return cause
}

func (r *SyncRunner) processSingleBatch(ctx context.Context, payload *domain.SyncJobPayload) (*domain.SyncResult, error) {
	if payload.StartIndex == nil {
		return nil, fmt.Errorf("missing startIndex in batch payload: %w", domain.ErrInvalidInput)
	}
	if payload.ProjectID == "" || payload.ProjectKey == "" {
		return nil, fmt.Errorf("batch payload requires project scope: %w", domain.ErrInvalidInput)
	}
	startIndex := *payload.StartIndex

	state, err := r.state.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !state.IsRunning {
		return nil, fmt.Errorf("sync is not running")
	}

	// Redelivered windows the cursor has moved past are already done.
	if startIndex < state.CurrentBatchStart {
		return &domain.SyncResult{Skipped: true, SkipReason: "already_processed"}, nil
	}

	batchLockName := fmt.Sprintf("%sbatch_%s_%d", batchLockPrefix, payload.ProjectID, startIndex)
	acquired, err := r.lock.Acquire(ctx, batchLockName, batchLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire batch lock: %w", err)
	}
	if !acquired {
		return &domain.SyncResult{Skipped: true, SkipReason: "batch_locked"}, nil
	}
	defer func() {
		if err := r.lock.Release(ctx, batchLockName); err != nil {
			r.logger.Error("failed to release batch lock", "lock", batchLockName, "error", err)
		}
	}()

	catalog, projection, err := r.fieldProjection(ctx)
	if err != nil {
		return nil, r.failBatch(ctx, payload, startIndex, err)
	}

	window, err := r.fetcher.Fetch(ctx, FetchRequest{
		StartAt:    startIndex,
		MaxResults: payload.BatchSize,
		ProjectID:  payload.ProjectID,
		ProjectKey: payload.ProjectKey,
		Fields:     projection,
		JQLQuery:   payload.JQLQuery,
	})
	if err != nil {
		return nil, r.failBatch(ctx, payload, startIndex, err)
	}

	if err := r.processWindow(ctx, window.Issues, catalog, payload.AppSettings); err != nil {
		return nil, r.failBatch(ctx, payload, startIndex, err)
	}

	updated, err := r.state.AtomicUpdate(ctx, payload.ProjectID, StateUpdate{
		ProcessedIncrement: len(window.Issues),
		NewBatchStart:      startIndex + len(window.Issues),
	})
	if err != nil {
		return nil, r.failBatch(ctx, payload, startIndex, err)
	}

	r.appendLog(ctx, domain.NewSyncLogEntry(domain.LogTypeBatchProcess, payload.ProjectID, payload.ProjectKey, map[string]any{
		"processed":  len(window.Issues),
		"batchStart": startIndex,
	}))

	completed := updated.Completed()
	if completed {
		r.appendLog(ctx, domain.NewSyncLogEntry(domain.LogTypeComplete, payload.ProjectID, payload.ProjectKey, map[string]any{
			"message": "Sync complete",
		}))
		updated.IsRunning = false
		if err := r.state.Set(ctx, updated); err != nil {
			return nil, err
		}
		if err := r.lock.Release(ctx, syncLockName); err != nil {
			r.logger.Error("failed to release sync lock", "error", err)
		}
	}

	return &domain.SyncResult{Processed: len(window.Issues), Completed: completed}, nil
}

// failBatch mirrors failRun for the legacy path, keyed by window start.
func (r *SyncRunner) failBatch(ctx context.Context, payload *domain.SyncJobPayload, startIndex int, cause error) error {
	r.logger.Error("batch processing failed", "batch_start", startIndex, "error", cause)

	state, err := r.state.Get(ctx)
	if err != nil {
		r.logger.Error("failed to read state while failing batch", "error", err)
		state = domain.NewIdleSyncState()
	}
	state.IsRunning = false
	state.Errors = append(state.Errors, domain.SyncError{BatchIndex: startIndex, Error: cause.Error()})
	if err := r.state.Set(ctx, state); err != nil {
		r.logger.Error("failed to persist failed state", "error", err)
	}

	r.appendLog(ctx, domain.NewSyncLogEntry(domain.LogTypeError, payload.ProjectID, payload.ProjectKey, map[string]any{
		"batchStart": startIndex,
		"error":      cause.Error(),
		"message":    "Sync stopped due to error",
	}))

	if err := r.lock.Release(ctx, syncLockName); err != nil {
		r.logger.Error("failed to release sync lock", "error", err)
	}
	return cause
}

func (r *SyncRunner) appendLog(ctx context.Context, entry domain.SyncLogEntry) {
	if err := r.syncLog.Append(ctx, entry); err != nil {
		r.logger.Error("failed to append sync log entry", "type", entry.Type, "error", err)
	}
}
