package api

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestDeduper(t *testing.T) (*miniredis.Miniredis, *redis.Client, *RedisDeduper) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("redis close: %v", cerr)
		}
	})
	return m, client, NewRedisDeduper(client, time.Minute)
}

func TestRedisDeduperAddTwice(t *testing.T) {
	_, _, deduper := newTestDeduper(t)
	ctx := context.Background()

	first, err := deduper.Add(ctx, "sub-1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !first {
		t.Fatal("expected key to be added")
	}

	second, err := deduper.Add(ctx, "sub-1")
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if second {
		t.Fatal("expected duplicate on second call")
	}
}

func TestRedisDeduperRemoveAllowsResubmit(t *testing.T) {
	_, _, deduper := newTestDeduper(t)
	ctx := context.Background()

	if _, err := deduper.Add(ctx, "sub-2"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := deduper.Remove(ctx, "sub-2"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	added, err := deduper.Add(ctx, "sub-2")
	if err != nil {
		t.Fatalf("add after remove: %v", err)
	}
	if !added {
		t.Fatal("expected key to be added again after remove")
	}
}

func TestRedisDeduperKeyNamespacingAndTTL(t *testing.T) {
	m, client, deduper := newTestDeduper(t)
	ctx := context.Background()

	if _, err := deduper.Add(ctx, "k1"); err != nil {
		t.Fatalf("add: %v", err)
	}

	expectedKey := dedupeKeyPrefix + "k1"
	exists, err := client.Exists(ctx, expectedKey).Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists != 1 {
		t.Fatalf("expected redis key %q to exist", expectedKey)
	}
	if ttl := m.TTL(expectedKey); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	m.FastForward(2 * time.Minute)
	added, err := deduper.Add(ctx, "k1")
	if err != nil {
		t.Fatalf("add after expiry: %v", err)
	}
	if !added {
		t.Fatal("expected key to be accepted after expiry")
	}
}
