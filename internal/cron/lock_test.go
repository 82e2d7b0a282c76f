package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memoryStore struct {
	values map[string]string
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func TestRedisLockIsExclusiveAndOwnerChecked(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{values: map[string]string{}}
	lock, err := NewRedisLock(store, "leasewise:lock:scheduler", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	token, ok, err := lock.Acquire(ctx)
	if err != nil || !ok || token == "" {
		t.Fatalf("expected first acquire to succeed, got %q %v %v", token, ok, err)
	}
	if _, ok, _ := lock.Acquire(ctx); ok {
		t.Fatalf("expected second acquire to fail")
	}

	if err := lock.Release(ctx, "someone-else"); err != nil {
		t.Fatalf("release foreign token: %v", err)
	}
	if _, held := store.values["leasewise:lock:scheduler"]; !held {
		t.Fatalf("foreign token must not release the lock")
	}

	if err := lock.Release(ctx, token); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := lock.Release(ctx, token); err != nil {
		t.Fatalf("second release should be a no-op: %v", err)
	}
	if _, ok, _ := lock.Acquire(ctx); !ok {
		t.Fatalf("expected acquire after release")
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := NewRedisLock(&memoryStore{}, "", time.Minute); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestLocalLock(t *testing.T) {
	ctx := context.Background()
	lock := NewLocalLock()
	token, ok, _ := lock.Acquire(ctx)
	if !ok {
		t.Fatalf("expected acquire")
	}
	if _, ok, _ := lock.Acquire(ctx); ok {
		t.Fatalf("expected exclusive lock")
	}
	_ = lock.Release(ctx, "stale")
	if _, ok, _ := lock.Acquire(ctx); ok {
		t.Fatalf("stale token must not release")
	}
	_ = lock.Release(ctx, token)
	if _, ok, _ := lock.Acquire(ctx); !ok {
		t.Fatalf("expected acquire after release")
	}
}
