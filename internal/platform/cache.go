package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLCache stores small JSON-serializable values with an expiry, used by the
// version manager's 600s scan cache and the update checker's upstream-check
// cache. When REDIS_URL is configured it's backed by Redis SET/GET with EX;
// a LAN appliance that doesn't run Redis falls back to an in-process map
// with its own expiry bookkeeping, so the cache works either way.
type TTLCache struct {
	rdb    *redis.Client
	prefix string

	mu   sync.Mutex
	local map[string]cacheEntry
}

type cacheEntry struct {
	value   []byte
	expires time.Time
}

// NewTTLCache creates a cache. rdb may be nil, in which case the cache is
// purely in-process.
func NewTTLCache(rdb *redis.Client, prefix string) *TTLCache {
	return &TTLCache{
		rdb:    rdb,
		prefix: prefix,
		local:  make(map[string]cacheEntry),
	}
}

// NewRedisClient connects to Redis if url is non-empty; returns nil, nil
// otherwise so callers can treat an unconfigured cache as the normal case.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// Set stores v under key with the given TTL.
func (c *TTLCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling cache value: %w", err)
	}

	if c.rdb != nil {
		return c.rdb.Set(ctx, c.prefix+key, raw, ttl).Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.local[key] = cacheEntry{value: raw, expires: time.Now().Add(ttl)}
	return nil
}

// Get retrieves the value stored under key into dst. Returns false if the
// key is absent or expired.
func (c *TTLCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
		if err == redis.Nil {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("getting cache value: %w", err)
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return false, fmt.Errorf("unmarshaling cache value: %w", err)
		}
		return true, nil
	}

	c.mu.Lock()
	entry, ok := c.local[key]
	if ok && time.Now().After(entry.expires) {
		delete(c.local, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.value, dst); err != nil {
		return false, fmt.Errorf("unmarshaling cache value: %w", err)
	}
	return true, nil
}
