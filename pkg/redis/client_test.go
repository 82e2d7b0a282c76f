package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/leasewise/leasewise-backend/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestSetNXGetDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.LockKey("scheduler-worker")

	ok, err := client.SetNX(ctx, key, "owner-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first setnx to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, key, "owner-2", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second setnx to lose, ok=%v err=%v", ok, err)
	}

	value, err := client.Get(ctx, key)
	if err != nil || value != "owner-1" {
		t.Fatalf("unexpected owner %q (%v)", value, err)
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestIncrWithTTLSetsExpiryOnce(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.RateLimitKey("test-send", "owner-1")
	if key != "lw:rl:test-send:owner-1" {
		t.Fatalf("unexpected key %s", key)
	}

	for want := int64(1); want <= 3; want++ {
		got, err := client.IncrWithTTL(ctx, key, time.Hour)
		if err != nil || got != want {
			t.Fatalf("expected count %d, got %d (%v)", want, got, err)
		}
		if want == 1 {
			delete(mock.expires, key)
		}
	}
	if _, reset := mock.expires[key]; reset {
		t.Fatalf("ttl must only be set on the first increment")
	}
}

func TestLockKeySkipsEmptyParts(t *testing.T) {
	client := &Client{}
	if got := client.LockKey("scheduler-worker"); got != "lw:lock:scheduler-worker" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.LockKey(" "); got != "lw:lock" {
		t.Fatalf("blank names should be skipped, got %s", got)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping on empty client to fail")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on empty client should be a no-op: %v", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatalf("expected missing url/address error")
	}

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
}

type mockCmdable struct {
	data    map[string]string
	counts  map[string]int64
	expires map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:    make(map[string]string),
		counts:  make(map[string]int64),
		expires: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.counts[key]++
	return redis.NewIntResult(m.counts[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	m.expires[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
