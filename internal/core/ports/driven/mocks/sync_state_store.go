package mocks

import (
	"context"
	"sync"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
)

// MockSyncStateStore is a mock implementation of SyncStateStore for testing
type MockSyncStateStore struct {
	mu    sync.RWMutex
	state *domain.SyncState

	// GetErr and SetErr inject failures when non-nil
	GetErr error
	SetErr error

	// GetHook, when set, may mutate the copy handed back by Get.
	GetHook func(state *domain.SyncState)

	SetCalls int
}

// NewMockSyncStateStore creates a new MockSyncStateStore
func NewMockSyncStateStore() *MockSyncStateStore {
	return &MockSyncStateStore{}
}

func (m *MockSyncStateStore) Get(ctx context.Context) (*domain.SyncState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.state == nil {
		return nil, domain.ErrNotFound
	}
	copied := *m.state
	copied.Errors = append([]domain.SyncError(nil), m.state.Errors...)
	if m.GetHook != nil {
		m.GetHook(&copied)
	}
	return &copied, nil
}

func (m *MockSyncStateStore) Set(ctx context.Context, state *domain.SyncState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCalls++
	if m.SetErr != nil {
		return m.SetErr
	}
	copied := *state
	copied.Errors = append([]domain.SyncError(nil), state.Errors...)
	m.state = &copied
	return nil
}

// Helper methods for testing

func (m *MockSyncStateStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = nil
	m.SetCalls = 0
}

// Current returns the stored state without copying, for assertions.
func (m *MockSyncStateStore) Current() *domain.SyncState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}
