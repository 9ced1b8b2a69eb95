package driven

import (
	"context"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
)

// SyncQueue carries sync job payloads to the worker with at-least-once
// delivery. Consumers must tolerate duplicate deliveries.
type SyncQueue interface {
	// Push enqueues a job payload and returns its job ID.
	// Payloads whose serialized form exceeds the size ceiling are rejected
	// with domain.ErrPayloadTooLarge.
	Push(ctx context.Context, payload *domain.SyncJobPayload) (jobID string, err error)

	// Consume blocks until a payload is available or the context is cancelled.
	// The returned ack function must be called after successful processing.
	Consume(ctx context.Context) (payload *domain.SyncJobPayload, ack func(context.Context) error, err error)

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}
