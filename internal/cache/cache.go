// Package cache is a TTL key-value store used for short-lived hand-off
// state: OAuth anti-forgery tokens and prepared-download tokens. It prefers
// a shared Redis backend and falls back to an in-process map when Redis is
// not configured or not reachable.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultTTL matches the lifetime of hand-off tokens.
const DefaultTTL = 10 * time.Minute

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// Cache stores JSON-serialized values under prefixed keys with a TTL.
//
// Backend selection is sticky: Redis is probed once on first use, and if
// the probe fails the cache uses the in-process map for the rest of the
// process lifetime. The two backends are never reconciled.
type Cache struct {
	prefix string
	log    zerolog.Logger

	mu       sync.Mutex
	rdb      *redis.Client
	probed   bool
	useRedis bool
	mem      map[string]memEntry
	now      func() time.Time
}

// New creates a cache with the given key prefix. client may be nil, which
// selects the in-process backend immediately.
func New(client *redis.Client, prefix string, log zerolog.Logger) *Cache {
	return &Cache{
		prefix: prefix,
		log:    log,
		rdb:    client,
		mem:    make(map[string]memEntry),
		now:    time.Now,
	}
}

func (c *Cache) key(key string) string {
	return c.prefix + key
}

// backend returns the Redis client to use, or nil for the in-process map.
// Must be called with c.mu held.
func (c *Cache) backend(ctx context.Context) *redis.Client {
	if !c.probed {
		c.probed = true
		if c.rdb != nil {
			if err := c.rdb.Ping(ctx).Err(); err != nil {
				c.log.Warn().Err(err).Msg("redis unreachable, using in-process cache")
			} else {
				c.useRedis = true
				c.log.Info().Msg("cache using redis backend")
			}
		}
	}
	if c.useRedis {
		return c.rdb
	}
	return nil
}

// sweep removes expired in-process entries. Must be called with c.mu held.
func (c *Cache) sweep() {
	now := c.now()
	for k, e := range c.mem {
		if e.expiresAt.Before(now) {
			delete(c.mem, k)
		}
	}
}

// Set stores value under key for ttl. The value is JSON serialized.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if rdb := c.backend(ctx); rdb != nil {
		return rdb.Set(ctx, c.key(key), data, ttl).Err()
	}

	c.sweep()
	c.mem[c.key(key)] = memEntry{value: data, expiresAt: c.now().Add(ttl)}
	return nil
}

// Get unmarshals the value for key into dest. Returns false if the key is
// absent or expired.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var data []byte
	if rdb := c.backend(ctx); rdb != nil {
		raw, err := rdb.Get(ctx, c.key(key)).Bytes()
		if err == redis.Nil {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		data = raw
	} else {
		c.sweep()
		entry, ok := c.mem[c.key(key)]
		if !ok {
			return false, nil
		}
		data = entry.value
	}

	if dest == nil {
		return true, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// UsingRedis reports whether the sticky backend probe selected Redis.
// False before the first operation and after a failed probe.
func (c *Cache) UsingRedis() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.useRedis
}

// Exists reports whether key is present and unexpired.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.Get(ctx, key, nil)
}

// Delete removes key. Deleting an absent key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rdb := c.backend(ctx); rdb != nil {
		return rdb.Del(ctx, c.key(key)).Err()
	}

	delete(c.mem, c.key(key))
	return nil
}
