package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
)

type cacheEntry struct {
	value  string
	expiry time.Time
}

// MockCache is a mock implementation of Cache for testing
type MockCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewMockCache creates a new MockCache
func NewMockCache() *MockCache {
	return &MockCache{
		entries: make(map[string]cacheEntry),
	}
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	if !entry.expiry.IsZero() && time.Now().After(entry.expiry) {
		return "", domain.ErrNotFound
	}
	return entry.value, nil
}

func (m *MockCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := cacheEntry{value: value}
	if ttl > 0 {
		entry.expiry = time.Now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Helper methods for testing

func (m *MockCache) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]cacheEntry)
}

func (m *MockCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
