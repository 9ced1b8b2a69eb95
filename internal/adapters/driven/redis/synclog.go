package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SyncLog = (*SyncLog)(nil)

const syncLogKey = "flowzira:syncLog"

// SyncLog implements the bounded activity log as a Redis list: LPUSH for
// newest-first order, LTRIM to the cap, EXPIRE to re-arm the TTL on every
// write.
type SyncLog struct {
	client *redis.Client
}

// NewSyncLog creates a new Redis-backed sync log.
func NewSyncLog(client *redis.Client) *SyncLog {
	return &SyncLog{client: client}
}

func (l *SyncLog) Append(ctx context.Context, entry domain.SyncLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	pipe := l.client.TxPipeline()
	pipe.LPush(ctx, syncLogKey, data)
	pipe.LTrim(ctx, syncLogKey, 0, int64(domain.SyncLogMaxEntries-1))
	pipe.Expire(ctx, syncLogKey, domain.SyncLogTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append log entry: %w", err)
	}
	return nil
}

func (l *SyncLog) List(ctx context.Context) ([]domain.SyncLogEntry, error) {
	raw, err := l.client.LRange(ctx, syncLogKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read sync log: %w", err)
	}
	entries := make([]domain.SyncLogEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.SyncLogEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (l *SyncLog) Clear(ctx context.Context) error {
	if err := l.client.Del(ctx, syncLogKey).Err(); err != nil {
		return fmt.Errorf("clear sync log: %w", err)
	}
	return nil
}
