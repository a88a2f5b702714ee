package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/motorintel/comparables/internal/infrastructure/monitoring/logging"
	"github.com/motorintel/comparables/pkg/errors"
)

// Serializer converts cached values to and from bytes.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonSerializer struct{}

func (jsonSerializer) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonSerializer) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Cache is the Redis-backed result cache.  Keys are namespaced under the
// configured prefix; TTLs receive a +/- 10 percent jitter so entries written
// together do not expire together.
type Cache struct {
	client     redis.UniversalClient
	logger     logging.Logger
	prefix     string
	defaultTTL time.Duration
	serializer Serializer
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithPrefix overrides the key namespace prefix.
func WithPrefix(prefix string) CacheOption {
	return func(c *Cache) { c.prefix = prefix }
}

// WithDefaultTTL overrides the TTL applied when Set receives zero.
func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.defaultTTL = ttl }
}

// WithSerializer overrides the JSON serializer.
func WithSerializer(s Serializer) CacheOption {
	return func(c *Cache) { c.serializer = s }
}

// NewCache constructs a Cache over client.
func NewCache(client redis.UniversalClient, logger logging.Logger, opts ...CacheOption) *Cache {
	c := &Cache{
		client:     client,
		logger:     logger.Named("cache"),
		prefix:     "comparables:",
		defaultTTL: 15 * time.Minute,
		serializer: jsonSerializer{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) fullKey(key string) string {
	return c.prefix + key
}

// jitterTTL spreads a TTL by +/- 10 percent.
func (c *Cache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

// Get unmarshals the cached value for key into dest and reports whether the
// key existed.  A missing key is (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, errors.CodeCacheUnavailable, "cache read failed").WithDetail(key)
	}
	if err := c.serializer.Unmarshal(data, dest); err != nil {
		// A corrupt entry behaves like a miss; the caller recomputes and
		// overwrites it.
		c.logger.Warn("discarding undecodable cache entry",
			logging.String("key", key), logging.Err(err))
		return false, nil
	}
	return true, nil
}

// Set stores value under key.  A zero ttl takes the configured default.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	data, err := c.serializer.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "cache value marshal failed").WithDetail(key)
	}
	if err := c.client.Set(ctx, c.fullKey(key), data, c.jitterTTL(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheUnavailable, "cache write failed").WithDetail(key)
	}
	return nil
}

// Delete removes keys from the cache.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.fullKey(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheUnavailable, "cache delete failed")
	}
	return nil
}

// Ping verifies cache connectivity, for health checks.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.CodeCacheUnavailable, "cache ping failed")
	}
	return nil
}
