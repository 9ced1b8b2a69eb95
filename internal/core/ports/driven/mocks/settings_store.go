package mocks

import (
	"context"
	"sync"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
)

// MockSettingsStore is a mock implementation of SettingsStore for testing
type MockSettingsStore struct {
	mu       sync.RWMutex
	settings map[string]*domain.AppSettings
}

// NewMockSettingsStore creates a new MockSettingsStore
func NewMockSettingsStore() *MockSettingsStore {
	return &MockSettingsStore{
		settings: make(map[string]*domain.AppSettings),
	}
}

func (m *MockSettingsStore) Get(ctx context.Context, scope string) (*domain.AppSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.settings[scope]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *MockSettingsStore) Save(ctx context.Context, scope string, settings *domain.AppSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *settings
	m.settings[scope] = &copied
	return nil
}

// Helper methods for testing

func (m *MockSettingsStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = make(map[string]*domain.AppSettings)
}
