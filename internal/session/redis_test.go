package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	store := NewRedisStore(client, ttl)
	t.Cleanup(func() {
		if cerr := store.Close(); cerr != nil {
			t.Logf("redis close: %v", cerr)
		}
	})
	return store, m
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, m := newTestRedisStore(t, time.Hour)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "dashboard_1_2_taskboard"); err != nil || ok {
		t.Fatalf("Get(missing) = %v, %v; want false, nil", ok, err)
	}
	if err := store.Set(ctx, "dashboard_1_2_taskboard", []byte(`{"group":"assignee"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, ok, err := store.Get(ctx, "dashboard_1_2_taskboard")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if string(val) != `{"group":"assignee"}` {
		t.Errorf("Get = %q", val)
	}

	if !m.Exists(DefaultRedisPrefix + "dashboard_1_2_taskboard") {
		t.Errorf("expected key to be stored with prefix %q", DefaultRedisPrefix)
	}
}

func TestRedisStore_TTL(t *testing.T) {
	store, m := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ttl := m.TTL(DefaultRedisPrefix + "k"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}

	m.FastForward(2 * time.Minute)
	if _, ok, err := store.Get(ctx, "k"); err != nil || ok {
		t.Errorf("Get after expiry = %v, %v; want false, nil", ok, err)
	}
}

func TestRedisStore_Delete(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Hour)
	ctx := context.Background()

	_ = store.Set(ctx, "k", []byte("v"))
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Error("key still present after Delete")
	}
}

func TestRedisStore_ErrorWhenServerDown(t *testing.T) {
	store, m := newTestRedisStore(t, time.Hour)
	m.Close()

	if _, _, err := store.Get(context.Background(), "k"); err == nil {
		t.Error("expected error when redis is unreachable")
	}
}
