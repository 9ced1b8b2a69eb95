package mocks

import (
	"context"
	"sync"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
)

// MockSyncLog is a mock implementation of SyncLog for testing
type MockSyncLog struct {
	mu      sync.Mutex
	entries []domain.SyncLogEntry
}

// NewMockSyncLog creates a new MockSyncLog
func NewMockSyncLog() *MockSyncLog {
	return &MockSyncLog{}
}

func (m *MockSyncLog) Append(ctx context.Context, entry domain.SyncLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]domain.SyncLogEntry{entry}, m.entries...)
	if len(m.entries) > domain.SyncLogMaxEntries {
		m.entries = m.entries[:domain.SyncLogMaxEntries]
	}
	return nil
}

func (m *MockSyncLog) List(ctx context.Context) ([]domain.SyncLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SyncLogEntry(nil), m.entries...), nil
}

func (m *MockSyncLog) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

// Helper methods for testing

// Types returns the entry types, newest first.
func (m *MockSyncLog) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.entries))
	for i, e := range m.entries {
		types[i] = e.Type
	}
	return types
}
