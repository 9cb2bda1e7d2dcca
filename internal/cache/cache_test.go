package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newMemCache() *Cache {
	// nil client selects the in-process backend on first use
	return New(nil, "test:", zerolog.Nop())
}

func TestCache_SetGet(t *testing.T) {
	c := newMemCache()
	ctx := context.Background()

	if err := c.Set(ctx, "k", map[string]string{"a": "b"}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got map[string]string
	ok, err := c.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false for present key")
	}
	if got["a"] != "b" {
		t.Errorf(`got["a"] = %q, want "b"`, got["a"])
	}
}

func TestCache_GetMissing(t *testing.T) {
	c := newMemCache()

	ok, err := c.Get(context.Background(), "nope", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("Get returned ok=true for missing key")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := newMemCache()
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", "v", time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}

	ok, _ := c.Exists(ctx, "k")
	if !ok {
		t.Fatal("key should exist immediately after Set")
	}

	now = now.Add(2 * time.Second)

	ok, _ = c.Exists(ctx, "k")
	if ok {
		t.Error("key should be absent after TTL elapses")
	}
	if len(c.mem) != 0 {
		t.Errorf("expired entry not swept, %d entries remain", len(c.mem))
	}
}

func TestCache_Delete(t *testing.T) {
	c := newMemCache()
	ctx := context.Background()

	c.Set(ctx, "k", "v", time.Minute)
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	ok, _ := c.Exists(ctx, "k")
	if ok {
		t.Error("key should be absent after Delete")
	}

	// Deleting again is not an error.
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of absent key: %v", err)
	}
}

func TestCache_PrefixIsolation(t *testing.T) {
	a := New(nil, "a:", zerolog.Nop())
	b := New(nil, "b:", zerolog.Nop())
	ctx := context.Background()

	a.Set(ctx, "k", "v", time.Minute)

	ok, _ := b.Exists(ctx, "k")
	if ok {
		t.Error("caches with different prefixes should not share keys")
	}
}
