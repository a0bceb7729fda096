// Package redis provides the Redis-backed cache used by the services for
// read-through task caching.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/taskboard-api/internal/service"
)

// Cache is a JSON-over-Redis implementation of service.Cache. Values are
// marshaled to JSON on Set and unmarshaled on Get; a missing key is reported
// as a miss, never an error.
type Cache struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

var _ service.Cache = (*Cache)(nil)

// NewCache creates a new Cache backed by the given Redis client. All keys
// are namespaced with prefix so multiple deployments can share an instance.
func NewCache(client *redis.Client, prefix string, logger *slog.Logger) (*Cache, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Cache{
		client: client,
		prefix: prefix,
		logger: logger.With(slog.String("component", "redis_cache")),
	}, nil
}

// Get implements service.Cache.Get.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read cache key %q: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// A corrupt entry behaves like a miss; drop it so the next write
		// replaces it.
		c.logger.Warn("dropping undecodable cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()))
		if delErr := c.client.Del(ctx, c.prefix+key).Err(); delErr != nil {
			c.logger.Warn("failed to drop cache entry",
				slog.String("key", key),
				slog.String("error", delErr.Error()))
		}
		return false, nil
	}
	return true, nil
}

// Set implements service.Cache.Set.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for cache key %q: %w", key, err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %q: %w", key, err)
	}
	return nil
}

// Delete implements service.Cache.Delete.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key %q: %w", key, err)
	}
	return nil
}

// Ping verifies connectivity to the Redis instance.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
