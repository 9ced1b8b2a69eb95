// Package redis implements the lock, cache and sync log ports on Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowzira/flowzira-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

const lockPrefix = "flowzira:lock:"

// Lock implements DistributedLock using Redis SETNX with TTL.
// Locks are deliberately not owner-scoped: the run lock is taken by the
// admin surface and released by whichever worker finishes or fails the run,
// so any holder of the name may release it.
type Lock struct {
	client *redis.Client
}

// NewLock creates a new Redis-backed distributed lock.
func NewLock(client *redis.Client) *Lock {
	return &Lock{client: client}
}

type lockValue struct {
	Holder    string `json:"holder"`
	Timestamp int64  `json:"timestamp"`
}

// Acquire attempts to acquire a named lock with the given TTL.
// Uses Redis SETNX for atomic acquisition; returns false when held.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	hostname, _ := os.Hostname()
	value, _ := json.Marshal(lockValue{
		Holder:    fmt.Sprintf("%s:%d", hostname, os.Getpid()),
		Timestamp: time.Now().UnixMilli(),
	})
	acquired, err := l.client.SetNX(ctx, lockPrefix+name, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return acquired, nil
}

// Release releases a named lock.
// Safe to call even if the lock is not held or has expired.
func (l *Lock) Release(ctx context.Context, name string) error {
	if err := l.client.Del(ctx, lockPrefix+name).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
