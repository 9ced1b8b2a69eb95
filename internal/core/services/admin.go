package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driving"
)

// AdminService is the control surface for sync runs: starting, stopping
// and force-resetting them, plus status and log reads.
type AdminService struct {
	fetcher  *IssueFetcher
	state    *StateManager
	lock     driven.DistributedLock
	queue    driven.SyncQueue
	syncLog  driven.SyncLog
	settings *SettingsManager
	logger   *slog.Logger
}

// AdminServiceConfig holds dependencies for AdminService.
type AdminServiceConfig struct {
	Fetcher  *IssueFetcher
	State    *StateManager
	Lock     driven.DistributedLock
	Queue    driven.SyncQueue
	SyncLog  driven.SyncLog
	Settings *SettingsManager
	Logger   *slog.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(cfg AdminServiceConfig) *AdminService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{
		fetcher:  cfg.Fetcher,
		state:    cfg.State,
		lock:     cfg.Lock,
		queue:    cfg.Queue,
		syncLog:  cfg.SyncLog,
		settings: cfg.Settings,
		logger:   logger,
	}
}

var _ driving.SyncAdmin = (*AdminService)(nil)

// StartSync begins a new run: take the run lock, size the scope, persist
// the running state and enqueue one full-sync job. An empty scope completes
// immediately without queueing anything.
func (s *AdminService) StartSync(ctx context.Context, req driving.StartSyncRequest) (*domain.SyncState, error) {
	acquired, err := s.lock.Acquire(ctx, syncLockName, syncLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !acquired {
		return nil, domain.ErrSyncAlreadyRunning
	}

	state, err := s.state.Get(ctx)
	if err != nil {
		s.releaseRunLock(ctx)
		return nil, err
	}
	if state.IsRunning {
		s.releaseRunLock(ctx)
		return nil, domain.ErrSyncAlreadyRunning
	}

	if req.ProjectID == "" && req.ProjectKey == "" && strings.TrimSpace(req.JQLQuery) == "" {
		s.releaseRunLock(ctx)
		return nil, domain.ErrFilterRequired
	}

	count, err := s.fetcher.Count(ctx, FetchRequest{
		ProjectID:  req.ProjectID,
		ProjectKey: req.ProjectKey,
		JQLQuery:   req.JQLQuery,
	})
	if err != nil {
		s.releaseRunLock(ctx)
		return nil, err
	}
	total := min(count, domain.MaxSyncIssues)

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = domain.DefaultBatchSize
	}

	state = domain.NewIdleSyncState()
	state.StartTime = domain.NowMillis()
	state.TotalWorkItems = total
	state.BatchSize = batchSize
	state.ProjectID = req.ProjectID
	state.ProjectKey = req.ProjectKey
	state.JQLQuery = req.JQLQuery

	if total == 0 {
		if err := s.state.Set(ctx, state); err != nil {
			s.releaseRunLock(ctx)
			return nil, err
		}
		s.appendLog(ctx, domain.NewSyncLogEntry(domain.LogTypeStart, req.ProjectID, req.ProjectKey, map[string]any{"total": 0}))
		s.appendLog(ctx, domain.NewSyncLogEntry(domain.LogTypeComplete, req.ProjectID, req.ProjectKey, map[string]any{"total": 0}))
		s.releaseRunLock(ctx)
		return state, nil
	}

	state.IsRunning = true
	if err := s.state.Set(ctx, state); err != nil {
		s.releaseRunLock(ctx)
		return nil, err
	}
	s.appendLog(ctx, domain.NewSyncLogEntry(domain.LogTypeStart, req.ProjectID, req.ProjectKey, map[string]any{"total": total}))

	if err := s.enqueueSyncJob(ctx, state); err != nil {
		state.IsRunning = false
		if setErr := s.state.Set(ctx, state); setErr != nil {
			s.logger.Error("failed to roll back state after enqueue failure", "error", setErr)
		}
		s.releaseRunLock(ctx)
		return nil, err
	}

	s.logger.Info("sync started",
		"total", total,
		"batch_size", batchSize,
		"project_id", req.ProjectID,
		"project_key", req.ProjectKey)
	return state, nil
}

// enqueueSyncJob snapshots the run into one full-sync payload and pushes it.
func (s *AdminService) enqueueSyncJob(ctx context.Context, state *domain.SyncState) error {
	settings, err := s.settings.GetSettings(ctx, state.ProjectID)
	if err != nil {
		return err
	}
	payload := &domain.SyncJobPayload{
		TotalWorkItems: state.TotalWorkItems,
		BatchSize:      state.BatchSize,
		ProjectID:      state.ProjectID,
		ProjectKey:     state.ProjectKey,
		JQLQuery:       state.JQLQuery,
		AppSettings:    settings.Flatten(),
		SyncType:       domain.SyncTypeFull,
	}
	jobID, err := s.queue.Push(ctx, payload)
	if err != nil {
		return fmt.Errorf("failed to enqueue sync job: %w", err)
	}

	batchCount := state.BatchCount()
	s.appendLog(ctx, domain.NewSyncLogEntry(domain.LogTypeEnqueue, state.ProjectID, state.ProjectKey, map[string]any{
		"batches":        batchCount,
		"totalWorkItems": state.TotalWorkItems,
		"batchSize":      state.BatchSize,
		"jobId":          jobID,
		"message":        fmt.Sprintf("Enqueued single sync job for %d batches", batchCount),
	}))
	return nil
}

// StopSync flips the running flag off; the runner notices at the next
// batch boundary.
func (s *AdminService) StopSync(ctx context.Context) (*domain.SyncState, error) {
	state, err := s.state.Get(ctx)
	if err != nil {
		return nil, err
	}
	state.IsRunning = false
	if err := s.state.Set(ctx, state); err != nil {
		return nil, err
	}
	s.releaseRunLock(ctx)
	s.appendLog(ctx, domain.NewSyncLogEntry(domain.LogTypeStopped, state.ProjectID, state.ProjectKey, nil))
	return state, nil
}

// ForceResetSync drops the run lock, zeroes the state and clears the log.
func (s *AdminService) ForceResetSync(ctx context.Context) (*domain.SyncState, error) {
	s.releaseRunLock(ctx)
	state := domain.NewIdleSyncState()
	if err := s.state.Set(ctx, state); err != nil {
		return nil, err
	}
	if err := s.syncLog.Clear(ctx); err != nil {
		s.logger.Error("failed to clear sync log", "error", err)
	}
	return state, nil
}

// ForceStopAllSyncs is the emergency stop. Every step is best effort; the
// call itself always yields the zeroed idle state.
func (s *AdminService) ForceStopAllSyncs(ctx context.Context) (*domain.SyncState, error) {
	state := domain.NewIdleSyncState()
	state.StartTime = domain.NowMillis()
	if err := s.state.Set(ctx, state); err != nil {
		s.logger.Error("failed to persist reset state", "error", err)
	}
	s.releaseRunLock(ctx)
	s.logger.Info("all syncs force-stopped")
	return state, nil
}

// GetSyncStatus returns the read-repaired state.
func (s *AdminService) GetSyncStatus(ctx context.Context) (*domain.SyncState, error) {
	return s.state.Get(ctx)
}

// GetSyncLog returns the activity log, newest first.
func (s *AdminService) GetSyncLog(ctx context.Context) ([]domain.SyncLogEntry, error) {
	return s.syncLog.List(ctx)
}

func (s *AdminService) releaseRunLock(ctx context.Context) {
	if err := s.lock.Release(ctx, syncLockName); err != nil {
		s.logger.Error("failed to release sync lock", "error", err)
	}
}

func (s *AdminService) appendLog(ctx context.Context, entry domain.SyncLogEntry) {
	if err := s.syncLog.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append sync log entry", "type", entry.Type, "error", err)
	}
}
