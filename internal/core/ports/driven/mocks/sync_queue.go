package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
)

// MockSyncQueue is a mock implementation of SyncQueue for testing
type MockSyncQueue struct {
	mu       sync.Mutex
	payloads []*domain.SyncJobPayload
	nextID   int

	// PushErr injects a push failure when non-nil
	PushErr error
}

// NewMockSyncQueue creates a new MockSyncQueue
func NewMockSyncQueue() *MockSyncQueue {
	return &MockSyncQueue{}
}

func (m *MockSyncQueue) Push(ctx context.Context, payload *domain.SyncJobPayload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PushErr != nil {
		return "", m.PushErr
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	if len(data) > domain.MaxPayloadBytes {
		return "", domain.ErrPayloadTooLarge
	}
	m.payloads = append(m.payloads, payload)
	m.nextID++
	return fmt.Sprintf("job-%d", m.nextID), nil
}

func (m *MockSyncQueue) Consume(ctx context.Context) (*domain.SyncJobPayload, func(context.Context) error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.payloads) == 0 {
		return nil, nil, ctx.Err()
	}
	payload := m.payloads[0]
	m.payloads = m.payloads[1:]
	return payload, func(context.Context) error { return nil }, nil
}

func (m *MockSyncQueue) Ping(ctx context.Context) error { return nil }

func (m *MockSyncQueue) Close() error { return nil }

// Helper methods for testing

func (m *MockSyncQueue) Pushed() []*domain.SyncJobPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.SyncJobPayload(nil), m.payloads...)
}

func (m *MockSyncQueue) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = nil
	m.nextID = 0
}
