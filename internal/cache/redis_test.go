// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/olegiv/newsmate-go/internal/model"
)

// newTestRedis connects to NEWSMATE_TEST_REDIS_URL under a prefix private
// to the test, or skips.
func newTestRedis(t *testing.T, prefix string) *RedisCache {
	t.Helper()
	url := os.Getenv("NEWSMATE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: NEWSMATE_TEST_REDIS_URL not set")
	}
	c, err := NewRedisCache(context.Background(), url, "newsmate-test:"+prefix+":", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	if err := c.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Clear(context.Background())
		_ = c.Close()
	})
	return c
}

func TestRedisCache_RoundTrip(t *testing.T) {
	c := newTestRedis(t, "roundtrip")
	ctx := context.Background()

	if _, err := c.Get(ctx, "absent"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get(absent) error = %v, want ErrCacheMiss", err)
	}

	if err := c.Set(ctx, "page", []byte(`[{"id":"n1"}]`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "page")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `[{"id":"n1"}]` {
		t.Errorf("Get = %s", got)
	}

	if has, err := c.Has(ctx, "page"); err != nil || !has {
		t.Errorf("Has = %v, %v; want true", has, err)
	}

	if err := c.Delete(ctx, "page"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "page"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after Delete error = %v, want ErrCacheMiss", err)
	}
}

func TestRedisCache_Expiry(t *testing.T) {
	c := newTestRedis(t, "expiry")
	ctx := context.Background()

	if err := c.Set(ctx, "short", []byte("x"), 100*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := c.Get(ctx, "short"); errors.Is(err, ErrCacheMiss) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("entry did not expire")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestRedisCache_InvalidatorDropsKindPages(t *testing.T) {
	c := newTestRedis(t, "invalidate")
	ctx := context.Background()
	lists := NewListCache[[]string](c, time.Minute)

	compute := func(v string) func() (*[]string, error) {
		return func() (*[]string, error) { return &[]string{v}, nil }
	}
	newsKey := ListKey{Kind: model.KindNews, Revision: 3, ActorID: "u1", Query: "live"}
	adKey := ListKey{Kind: model.KindAd, Revision: 7, ActorID: "u1", Query: "live"}
	if _, hit, err := lists.Get(ctx, newsKey, compute("n")); err != nil || hit {
		t.Fatalf("first news Get = hit %v, err %v", hit, err)
	}
	if _, _, err := lists.Get(ctx, adKey, compute("a")); err != nil {
		t.Fatalf("ad Get: %v", err)
	}
	if _, hit, err := lists.Get(ctx, newsKey, compute("other")); err != nil || !hit {
		t.Fatalf("second news Get = hit %v, err %v", hit, err)
	}

	NewInvalidator(c).Notify(ctx, model.ChangeEvent{Kind: model.KindCategory, EntityID: "c1"})

	if has, _ := c.Has(ctx, newsKey.String()); has {
		t.Error("category writes should drop news pages")
	}
	if has, _ := c.Has(ctx, adKey.String()); !has {
		t.Error("ad pages should survive a category write")
	}
}

func TestRedisCache_DeleteByPrefixSpansBatches(t *testing.T) {
	c := newTestRedis(t, "batches")
	ctx := context.Background()

	for i := range redisScanBatch*2 + 5 {
		if err := c.Set(ctx, ListKey{Kind: model.KindAd, Revision: int64(i)}.String(), []byte("p"), 0); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	if err := c.Set(ctx, "keep", []byte("k"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := c.DeleteByPrefix(ctx, listKeyPrefix); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if items := c.Stats().Items; items != 1 {
		t.Errorf("Items = %d, want 1", items)
	}
}

func TestRedisCache_Stats(t *testing.T) {
	c := newTestRedis(t, "stats")
	ctx := context.Background()
	c.ResetStats()

	_ = c.Set(ctx, "k1", []byte("v"), 0)
	_ = c.Set(ctx, "k2", []byte("v"), 0)
	_, _ = c.Get(ctx, "k1")
	_, _ = c.Get(ctx, "k1")
	_, _ = c.Get(ctx, "k3")

	s := c.Stats()
	if s.Backend != BackendRedis {
		t.Errorf("Backend = %q, want %q", s.Backend, BackendRedis)
	}
	if s.Items != 2 || s.Sets != 2 || s.Hits != 2 || s.Misses != 1 {
		t.Errorf("Stats = %+v, want 2 items, 2 sets, 2 hits, 1 miss", s)
	}
	if math.Abs(s.HitRate-66.67) > 0.1 {
		t.Errorf("HitRate = %.2f, want about 66.67", s.HitRate)
	}
}

func TestRedisCache_Closed(t *testing.T) {
	c := newTestRedis(t, "closed")
	ctx := context.Background()

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get error = %v, want ErrCacheClosed", err)
	}
	if err := c.Set(ctx, "k", []byte("v"), 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Set error = %v, want ErrCacheClosed", err)
	}
	if err := c.DeleteByPrefix(ctx, "list:"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("DeleteByPrefix error = %v, want ErrCacheClosed", err)
	}
}

func TestNewRedisCache_BadURL(t *testing.T) {
	ctx := context.Background()

	for _, url := range []string{"", "invalid-url"} {
		if _, err := NewRedisCache(ctx, url, "p:", time.Minute); err == nil {
			t.Errorf("NewRedisCache(%q) succeeded, want error", url)
		}
	}
}
