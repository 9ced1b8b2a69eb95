package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
)

func TestCache_SetGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "flowzira_custom_fields", `[{"id":"customfield_1"}]`, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, err := cache.Get(ctx, "flowzira_custom_fields")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != `[{"id":"customfield_1"}]` {
		t.Errorf("got %q", value)
	}
}

func TestCache_Get_Missing(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewCache(client)

	_, err := cache.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestCache_Get_Expired(t *testing.T) {
	client, mr, cleanup := setupTestRedisWithServer(t)
	defer cleanup()

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "appSettings", `{"agentReplyCountVisibility":{"value":"all"}}`, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	_, err := cache.Get(ctx, "appSettings")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound after expiry", err)
	}
}

func TestCache_Delete(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "key", "value", time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cache.Delete(ctx, "key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := cache.Get(ctx, "key")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound after delete", err)
	}
}
