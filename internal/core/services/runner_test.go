package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven/mocks"
)

const commentCountFieldID = "customfield_10001"

func newRunnerFixture() (*SyncRunner, *mocks.MockTrackerAPI, *mocks.MockSyncStateStore, *mocks.MockDistributedLock, *mocks.MockSyncLog) {
	tracker := mocks.NewMockTrackerAPI()
	tracker.Fields = []domain.FieldDescriptor{
		{ID: commentCountFieldID, Key: "flowzira-comment-count-custom-field", Name: "Flowzira Comment Count"},
	}
	stateStore := mocks.NewMockSyncStateStore()
	lock := mocks.NewMockDistributedLock()
	syncLog := mocks.NewMockSyncLog()
	cache := mocks.NewMockCache()

	stateMgr := NewStateManager(stateStore, lock, nil)
	runner := NewSyncRunner(SyncRunnerConfig{
		Fetcher:    NewIssueFetcher(tracker, nil),
		Calculator: NewFieldCalculator(tracker, cache, nil),
		State:      stateMgr,
		Lock:       lock,
		SyncLog:    syncLog,
	})
	return runner, tracker, stateStore, lock, syncLog
}

func seedIssues(tracker *mocks.MockTrackerAPI, n int) {
	for i := n; i >= 1; i-- {
		key := fmt.Sprintf("DEMO-%d", i)
		tracker.Issues = append(tracker.Issues, domain.Issue{
			ID:  key,
			Key: key,
			Fields: domain.IssueFields{
				Custom: map[string]any{commentCountFieldID: nil},
			},
		})
	}
}

func runningState(total, batchSize int) *domain.SyncState {
	state := domain.NewIdleSyncState()
	state.IsRunning = true
	state.StartTime = domain.NowMillis()
	state.TotalWorkItems = total
	state.BatchSize = batchSize
	state.ProjectID = "10001"
	state.ProjectKey = "DEMO"
	return state
}

func TestFullSyncProcessesAllWindows(t *testing.T) {
	runner, tracker, stateStore, lock, syncLog := newRunnerFixture()
	seedIssues(tracker, 120)
	ctx := context.Background()

	if err := stateStore.Set(ctx, runningState(120, 50)); err != nil {
		t.Fatal(err)
	}
	if _, err := lock.Acquire(ctx, syncLockName, syncLockTTL); err != nil {
		t.Fatal(err)
	}

	result, err := runner.ProcessJob(ctx, &domain.SyncJobPayload{
		TotalWorkItems: 120,
		BatchSize:      50,
		ProjectID:      "10001",
		ProjectKey:     "DEMO",
		SyncType:       domain.SyncTypeFull,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 120 || !result.Completed {
		t.Errorf("got result %+v, want 120 processed and completed", result)
	}

	final := stateStore.Current()
	if final.IsRunning {
		t.Error("state still marked running after completion")
	}
	if final.ProcessedWorkItems != 120 || final.CurrentBatchStart != 120 {
		t.Errorf("got processed=%d cursor=%d, want 120/120", final.ProcessedWorkItems, final.CurrentBatchStart)
	}
	if lock.IsHeld(syncLockName) {
		t.Error("run lock still held after completion")
	}
	if tracker.UpdateCount() != 120 {
		t.Errorf("got %d issue updates, want one per issue", tracker.UpdateCount())
	}

	types := syncLog.Types()
	if len(types) == 0 || types[0] != domain.LogTypeComplete {
		t.Errorf("newest log entry is %v, want complete", types)
	}
	batchCompletes := 0
	for _, typ := range types {
		if typ == domain.LogTypeBatchComplete {
			batchCompletes++
		}
	}
	if batchCompletes != 3 {
		t.Errorf("got %d batch-complete entries, want 3", batchCompletes)
	}
}

func TestFullSyncSkipsWhenNotRunning(t *testing.T) {
	runner, tracker, stateStore, _, _ := newRunnerFixture()
	seedIssues(tracker, 10)
	ctx := context.Background()

	idle := domain.NewIdleSyncState()
	if err := stateStore.Set(ctx, idle); err != nil {
		t.Fatal(err)
	}

	result, err := runner.ProcessJob(ctx, &domain.SyncJobPayload{
		TotalWorkItems: 10,
		BatchSize:      50,
		ProjectKey:     "DEMO",
		SyncType:       domain.SyncTypeFull,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Skipped || result.SkipReason != "sync_not_running" {
		t.Errorf("got %+v, want skipped sync_not_running", result)
	}
	if len(tracker.SearchJQLs) != 0 {
		t.Error("runner searched issues for a skipped job")
	}
}

func TestFullSyncStopsAtBatchBoundary(t *testing.T) {
	runner, tracker, stateStore, lock, _ := newRunnerFixture()
	seedIssues(tracker, 100)
	ctx := context.Background()

	if err := stateStore.Set(ctx, runningState(100, 50)); err != nil {
		t.Fatal(err)
	}
	if _, err := lock.Acquire(ctx, syncLockName, syncLockTTL); err != nil {
		t.Fatal(err)
	}
	// Simulate a stop arriving after the first window is checkpointed.
	stateStore.GetHook = func(state *domain.SyncState) {
		if state.ProcessedWorkItems >= 50 {
			state.IsRunning = false
		}
	}

	result, err := runner.ProcessJob(ctx, &domain.SyncJobPayload{
		TotalWorkItems: 100,
		BatchSize:      50,
		ProjectID:      "10001",
		ProjectKey:     "DEMO",
		SyncType:       domain.SyncTypeFull,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 50 || result.Completed {
		t.Errorf("got %+v, want 50 processed and not completed", result)
	}
	if !lock.IsHeld(syncLockName) {
		t.Error("run lock released on cooperative stop")
	}
}

func TestFullSyncFailureStopsRunAndReleasesLock(t *testing.T) {
	runner, tracker, stateStore, lock, syncLog := newRunnerFixture()
	seedIssues(tracker, 10)
	tracker.UpdateErr = errors.New("update rejected")
	ctx := context.Background()

	if err := stateStore.Set(ctx, runningState(10, 50)); err != nil {
		t.Fatal(err)
	}
	if _, err := lock.Acquire(ctx, syncLockName, syncLockTTL); err != nil {
		t.Fatal(err)
	}

	_, err := runner.ProcessJob(ctx, &domain.SyncJobPayload{
		TotalWorkItems: 10,
		BatchSize:      50,
		ProjectID:      "10001",
		ProjectKey:     "DEMO",
		SyncType:       domain.SyncTypeFull,
	})
	if err == nil {
		t.Fatal("expected error")
	}

	final := stateStore.Current()
	if final.IsRunning {
		t.Error("state still running after failure")
	}
	if len(final.Errors) != 1 || final.Errors[0].BatchIndex != 0 {
		t.Errorf("got errors %+v, want one for batch 0", final.Errors)
	}
	if lock.IsHeld(syncLockName) {
		t.Error("run lock still held after failure")
	}
	types := syncLog.Types()
	if len(types) == 0 || types[0] != domain.LogTypeError {
		t.Errorf("newest log entry is %v, want error", types)
	}
}

func TestSingleBatchSkipsAlreadyProcessed(t *testing.T) {
	runner, tracker, stateStore, _, _ := newRunnerFixture()
	seedIssues(tracker, 100)
	ctx := context.Background()

	state := runningState(100, 50)
	state.CurrentBatchStart = 50
	if err := stateStore.Set(ctx, state); err != nil {
		t.Fatal(err)
	}

	start := 0
	result, err := runner.ProcessJob(ctx, &domain.SyncJobPayload{
		TotalWorkItems: 100,
		BatchSize:      50,
		ProjectID:      "10001",
		ProjectKey:     "DEMO",
		StartIndex:     &start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Skipped || result.SkipReason != "already_processed" {
		t.Errorf("got %+v, want skipped already_processed", result)
	}
}

func TestSingleBatchDedupesViaBatchLock(t *testing.T) {
	runner, tracker, stateStore, lock, _ := newRunnerFixture()
	seedIssues(tracker, 100)
	ctx := context.Background()

	if err := stateStore.Set(ctx, runningState(100, 50)); err != nil {
		t.Fatal(err)
	}
	lockName := fmt.Sprintf("%sbatch_%s_%d", batchLockPrefix, "10001", 50)
	if _, err := lock.Acquire(ctx, lockName, batchLockTTL); err != nil {
		t.Fatal(err)
	}

	start := 50
	result, err := runner.ProcessJob(ctx, &domain.SyncJobPayload{
		TotalWorkItems: 100,
		BatchSize:      50,
		ProjectID:      "10001",
		ProjectKey:     "DEMO",
		StartIndex:     &start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Skipped || result.SkipReason != "batch_locked" {
		t.Errorf("got %+v, want skipped batch_locked", result)
	}
}

func TestSingleBatchProcessesWindowAndReleasesBatchLock(t *testing.T) {
	runner, tracker, stateStore, lock, _ := newRunnerFixture()
	seedIssues(tracker, 60)
	ctx := context.Background()

	state := runningState(60, 50)
	state.ProcessedWorkItems = 50
	state.CurrentBatchStart = 50
	if err := stateStore.Set(ctx, state); err != nil {
		t.Fatal(err)
	}
	if _, err := lock.Acquire(ctx, syncLockName, syncLockTTL); err != nil {
		t.Fatal(err)
	}

	start := 50
	result, err := runner.ProcessJob(ctx, &domain.SyncJobPayload{
		TotalWorkItems: 60,
		BatchSize:      50,
		ProjectID:      "10001",
		ProjectKey:     "DEMO",
		StartIndex:     &start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Processed != 10 || !result.Completed {
		t.Errorf("got %+v, want 10 processed and completed", result)
	}
	if lock.IsHeld(fmt.Sprintf("%sbatch_%s_%d", batchLockPrefix, "10001", 50)) {
		t.Error("batch lock still held after processing")
	}
	if lock.IsHeld(syncLockName) {
		t.Error("run lock still held after final batch")
	}
}
