package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven/mocks"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driving"
)

type adminFixture struct {
	admin      *AdminService
	tracker    *mocks.MockTrackerAPI
	stateStore *mocks.MockSyncStateStore
	lock       *mocks.MockDistributedLock
	queue      *mocks.MockSyncQueue
	syncLog    *mocks.MockSyncLog
}

func newAdminFixture() *adminFixture {
	tracker := mocks.NewMockTrackerAPI()
	stateStore := mocks.NewMockSyncStateStore()
	lock := mocks.NewMockDistributedLock()
	queue := mocks.NewMockSyncQueue()
	syncLog := mocks.NewMockSyncLog()
	cache := mocks.NewMockCache()

	admin := NewAdminService(AdminServiceConfig{
		Fetcher:  NewIssueFetcher(tracker, nil),
		State:    NewStateManager(stateStore, lock, nil),
		Lock:     lock,
		Queue:    queue,
		SyncLog:  syncLog,
		Settings: NewSettingsManager(mocks.NewMockSettingsStore(), cache, tracker, nil),
	})
	return &adminFixture{
		admin:      admin,
		tracker:    tracker,
		stateStore: stateStore,
		lock:       lock,
		queue:      queue,
		syncLog:    syncLog,
	}
}

func TestStartSyncEnqueuesFullSyncJob(t *testing.T) {
	f := newAdminFixture()
	for i := 0; i < 120; i++ {
		key := fmt.Sprintf("DEMO-%d", 120-i)
		f.tracker.Issues = append(f.tracker.Issues, domain.Issue{ID: key, Key: key})
	}
	ctx := context.Background()

	state, err := f.admin.StartSync(ctx, driving.StartSyncRequest{ProjectID: "10001", ProjectKey: "DEMO"})
	require.NoError(t, err)

	assert.True(t, state.IsRunning)
	assert.Equal(t, 120, state.TotalWorkItems)
	assert.Equal(t, domain.DefaultBatchSize, state.BatchSize)
	assert.Equal(t, 0, state.ProcessedWorkItems)
	assert.True(t, f.lock.IsHeld(syncLockName))

	pushed := f.queue.Pushed()
	require.Len(t, pushed, 1)
	assert.Equal(t, domain.SyncTypeFull, pushed[0].SyncType)
	assert.Equal(t, 120, pushed[0].TotalWorkItems)
	assert.Equal(t, "DEMO", pushed[0].ProjectKey)
	require.NotNil(t, pushed[0].AppSettings)
	assert.Equal(t, "all", pushed[0].AppSettings.AgentReplyCountVisibility)

	types := f.syncLog.Types()
	require.Len(t, types, 2)
	assert.Equal(t, domain.LogTypeEnqueue, types[0])
	assert.Equal(t, domain.LogTypeStart, types[1])
}

func TestStartSyncRejectsConcurrentRun(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	// Lock held by another start.
	_, err := f.lock.Acquire(ctx, syncLockName, syncLockTTL)
	require.NoError(t, err)

	_, err = f.admin.StartSync(ctx, driving.StartSyncRequest{ProjectKey: "DEMO"})
	assert.ErrorIs(t, err, domain.ErrSyncAlreadyRunning)
	assert.Empty(t, f.queue.Pushed())
}

func TestStartSyncRejectsWhenStateRunning(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	state := domain.NewIdleSyncState()
	state.IsRunning = true
	state.TotalWorkItems = 10
	require.NoError(t, f.stateStore.Set(ctx, state))

	_, err := f.admin.StartSync(ctx, driving.StartSyncRequest{ProjectKey: "DEMO"})
	assert.ErrorIs(t, err, domain.ErrSyncAlreadyRunning)

	// The running state must be left untouched.
	current := f.stateStore.Current()
	assert.True(t, current.IsRunning)
	assert.Equal(t, 10, current.TotalWorkItems)
	assert.False(t, f.lock.IsHeld(syncLockName))
}

func TestStartSyncRequiresFilterForGlobalScope(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	_, err := f.admin.StartSync(ctx, driving.StartSyncRequest{JQLQuery: "   "})
	assert.ErrorIs(t, err, domain.ErrFilterRequired)
	assert.Empty(t, f.tracker.CountJQLs, "no count query before validation")
	assert.False(t, f.lock.IsHeld(syncLockName))
}

func TestStartSyncZeroResultFastPath(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	state, err := f.admin.StartSync(ctx, driving.StartSyncRequest{ProjectKey: "DEMO"})
	require.NoError(t, err)

	assert.False(t, state.IsRunning)
	assert.Equal(t, 0, state.TotalWorkItems)
	assert.False(t, f.lock.IsHeld(syncLockName))
	assert.Empty(t, f.queue.Pushed())

	types := f.syncLog.Types()
	require.Len(t, types, 2)
	assert.Equal(t, domain.LogTypeComplete, types[0])
	assert.Equal(t, domain.LogTypeStart, types[1])
}

func TestStopSyncFlipsRunningAndReleasesLock(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	state := domain.NewIdleSyncState()
	state.IsRunning = true
	state.ProjectKey = "DEMO"
	require.NoError(t, f.stateStore.Set(ctx, state))
	_, err := f.lock.Acquire(ctx, syncLockName, syncLockTTL)
	require.NoError(t, err)

	stopped, err := f.admin.StopSync(ctx)
	require.NoError(t, err)

	assert.False(t, stopped.IsRunning)
	assert.False(t, f.lock.IsHeld(syncLockName))
	types := f.syncLog.Types()
	require.NotEmpty(t, types)
	assert.Equal(t, domain.LogTypeStopped, types[0])
}

func TestForceResetSyncClearsEverything(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	state := domain.NewIdleSyncState()
	state.IsRunning = true
	state.TotalWorkItems = 500
	state.ProcessedWorkItems = 200
	state.CurrentBatchStart = 200
	state.Errors = []domain.SyncError{{BatchIndex: 3, Error: "boom"}}
	require.NoError(t, f.stateStore.Set(ctx, state))
	_, err := f.lock.Acquire(ctx, syncLockName, syncLockTTL)
	require.NoError(t, err)
	require.NoError(t, f.syncLog.Append(ctx, domain.NewSyncLogEntry(domain.LogTypeStart, "", "", nil)))

	reset, err := f.admin.ForceResetSync(ctx)
	require.NoError(t, err)

	assert.False(t, reset.IsRunning)
	assert.Equal(t, 0, reset.TotalWorkItems)
	assert.Equal(t, 0, reset.ProcessedWorkItems)
	assert.Equal(t, 0, reset.CurrentBatchStart)
	assert.Empty(t, reset.Errors)
	assert.False(t, f.lock.IsHeld(syncLockName))

	entries, err := f.syncLog.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestForceStopAllSyncsAlwaysSucceeds(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	state, err := f.admin.ForceStopAllSyncs(ctx)
	require.NoError(t, err)
	assert.False(t, state.IsRunning)
	assert.False(t, f.lock.IsHeld(syncLockName))
}

func TestStartSyncCapsTotalAtMaximum(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()
	for i := 0; i < domain.MaxSyncIssues+200; i++ {
		key := fmt.Sprintf("BIG-%d", i+1)
		f.tracker.Issues = append(f.tracker.Issues, domain.Issue{ID: key, Key: key})
	}

	state, err := f.admin.StartSync(ctx, driving.StartSyncRequest{ProjectKey: "BIG"})
	require.NoError(t, err)
	assert.Equal(t, domain.MaxSyncIssues, state.TotalWorkItems)
}
