// Package redis provides the Redis-backed valuation result cache.  Cache
// faults are soft by contract: callers log and recompute, they never fail a
// request over an unavailable cache.
package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/motorintel/comparables/internal/config"
	"github.com/motorintel/comparables/pkg/errors"
)

// NewClient builds a connected Redis client from configuration and verifies
// connectivity with a ping.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, errors.CodeCacheUnavailable, "failed to connect to redis").WithDetail(cfg.Addr)
	}
	return client, nil
}
