// Package worker consumes sync jobs from the queue and drives the runner.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven"
	"github.com/flowzira/flowzira-sync/internal/core/services"
)

// Worker pulls sync job payloads off the queue and hands them to the runner.
// Delivery is at least once, so a job is only acknowledged after the runner
// returns; the runner's state cursor and batch locks make redelivery safe.
type Worker struct {
	queue  driven.SyncQueue
	runner *services.SyncRunner
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	Queue  driven.SyncQueue
	Runner *services.SyncRunner
	Logger *slog.Logger
}

// NewWorker creates a new sync job worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:  cfg.Queue,
		runner: cfg.Runner,
		logger: logger,
	}
}

// Start begins the consume loop. It runs until the context is cancelled.
// Jobs run one at a time: the engine is single flight, so consuming
// concurrently would only make workers fight over the run lock.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting")

	go func() {
		defer close(w.doneCh)
		w.consumeLoop(ctx)
	}()

	return nil
}

// Wait blocks until the consume loop exits. Returns immediately when the
// worker was never started.
func (w *Worker) Wait() {
	w.mu.Lock()
	done := w.doneCh
	w.mu.Unlock()
	if done == nil {
		return
	}
	<-done
}

func (w *Worker) consumeLoop(ctx context.Context) {
	for {
		payload, ack, err := w.queue.Consume(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				w.logger.Info("worker stopping")
				return
			}
			w.logger.Error("failed to consume job", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if payload == nil {
			// No job available, check the context and poll again
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}
		w.processJob(ctx, payload, ack)
	}
}

func (w *Worker) processJob(ctx context.Context, payload *domain.SyncJobPayload, ack func(context.Context) error) {
	logger := w.logger.With(
		"sync_type", payload.SyncType,
		"project_id", payload.ProjectID,
		"total_work_items", payload.TotalWorkItems,
	)
	logger.Info("processing sync job")

	startTime := time.Now()
	result, err := w.runner.ProcessJob(ctx, payload)
	duration := time.Since(startTime)

	if err != nil {
		logger.Error("sync job failed", "duration", duration, "error", err)
		// Ack anyway: the runner already recorded the failure in the sync
		// state and log, and a retry would resume from the stored cursor
		// only when the admin restarts the run.
		if ackErr := ack(ctx); ackErr != nil {
			logger.Error("failed to ack job", "ack_error", ackErr)
		}
		return
	}

	if result.Skipped {
		logger.Info("sync job skipped", "reason", result.SkipReason, "duration", duration)
	} else {
		logger.Info("sync job completed",
			"processed", result.Processed,
			"completed", result.Completed,
			"duration", duration,
		)
	}

	if ackErr := ack(ctx); ackErr != nil {
		logger.Error("failed to ack job", "ack_error", ackErr)
	}
}
