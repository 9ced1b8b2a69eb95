// Package redis implements the SyncQueue port on Redis Streams.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven"
)

const (
	jobStream = "flowzira:syncJobs"
	jobGroup  = "flowzira:workers"

	// How long one XReadGroup call blocks before re-checking the context.
	readBlock = 5 * time.Second

	// How long another consumer's delivery may sit unacknowledged before it
	// is claimed. Longer than the batch lock TTL so a live worker's batch is
	// never stolen mid-flight.
	claimMinIdle = 15 * time.Minute
)

// Verify interface compliance
var _ driven.SyncQueue = (*Queue)(nil)

// Queue implements SyncQueue using Redis Streams. Consumer groups give
// at-least-once delivery: a message stays pending until acknowledged. Consume
// re-reads this consumer's own backlog after a restart and claims deliveries
// stranded by consumers idle past the claim threshold.
type Queue struct {
	client       *redis.Client
	consumerName string
	minIdle      time.Duration
}

// NewQueue creates a new Redis-backed sync queue. The consumerName must be
// stable across restarts of the same worker instance so its unacknowledged
// deliveries are resumed; when empty, one is derived from the hostname.
func NewQueue(client *redis.Client, consumerName string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumerName == "" {
		hostname, _ := os.Hostname()
		consumerName = "worker-" + hostname
	}

	q := &Queue{
		client:       client,
		consumerName: consumerName,
		minIdle:      claimMinIdle,
	}

	// Create consumer group if it doesn't exist
	err := q.client.XGroupCreateMkStream(context.Background(), jobStream, jobGroup, "0").Err()
	if err != nil && !isGroupExistsError(err) {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return q, nil
}

// Push enqueues a job payload. Payloads whose serialized form exceeds the
// message-size ceiling are rejected before touching Redis.
func (q *Queue) Push(ctx context.Context, payload *domain.SyncJobPayload) (string, error) {
	if payload == nil {
		return "", domain.ErrInvalidInput
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	if len(data) > domain.MaxPayloadBytes {
		return "", fmt.Errorf("%w: %d bytes", domain.ErrPayloadTooLarge, len(data))
	}

	jobID, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: jobStream,
		Values: map[string]interface{}{"payload": string(data)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return jobID, nil
}

// Consume blocks until a payload is available or the context is cancelled.
// The returned ack removes the message from the pending entries list; an
// unacked message is redelivered, so processing must be idempotent.
func (q *Queue) Consume(ctx context.Context) (*domain.SyncJobPayload, func(context.Context) error, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		msg, err := q.nextDelivery(ctx)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, nil, ctx.Err()
			}
			return nil, nil, fmt.Errorf("read from stream: %w", err)
		}
		if msg == nil {
			continue
		}

		raw, ok := msg.Values["payload"].(string)
		if !ok {
			// Malformed message, drop it
			q.client.XAck(ctx, jobStream, jobGroup, msg.ID)
			continue
		}

		var payload domain.SyncJobPayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			q.client.XAck(ctx, jobStream, jobGroup, msg.ID)
			continue
		}

		msgID := msg.ID
		ack := func(ackCtx context.Context) error {
			pipe := q.client.Pipeline()
			pipe.XAck(ackCtx, jobStream, jobGroup, msgID)
			pipe.XDel(ackCtx, jobStream, msgID)
			if _, err := pipe.Exec(ackCtx); err != nil {
				return fmt.Errorf("ack job %s: %w", msgID, err)
			}
			return nil
		}
		return &payload, ack, nil
	}
}

// nextDelivery prefers redelivery of unacknowledged messages over new ones:
// this consumer's own backlog first (a restart with the same name), then
// deliveries stranded by consumers idle longer than the claim threshold,
// then fresh messages.
func (q *Queue) nextDelivery(ctx context.Context) (*redis.XMessage, error) {
	if msg, err := q.reclaim(ctx); err != nil || msg != nil {
		return msg, err
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    jobGroup,
		Consumer: q.consumerName,
		Streams:  []string{jobStream, ">"},
		Count:    1,
		Block:    readBlock,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}
	msg := streams[0].Messages[0]
	return &msg, nil
}

func (q *Queue) reclaim(ctx context.Context) (*redis.XMessage, error) {
	// "0" reads this consumer's pending entries without blocking.
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    jobGroup,
		Consumer: q.consumerName,
		Streams:  []string{jobStream, "0"},
		Count:    1,
		Block:    -1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if len(streams) > 0 && len(streams[0].Messages) > 0 {
		msg := streams[0].Messages[0]
		return &msg, nil
	}

	claimed, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   jobStream,
		Group:    jobGroup,
		Consumer: q.consumerName,
		MinIdle:  q.minIdle,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if len(claimed) > 0 {
		return &claimed[0], nil
	}
	return nil, nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close releases queue resources. The shared Redis client is owned by the
// caller and stays open.
func (q *Queue) Close() error {
	return nil
}

func isGroupExistsError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}
