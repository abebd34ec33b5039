package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/avolkov/resource-sentinel/internal/application/port"
)

const keyPrefix = "sentinel:"

// RedisCache implements the engine cache port on Redis, for deployments
// where cached research results should survive restarts or be shared
// across instances. Values are stored as raw bytes; Redis enforces the
// per-entry TTL. Single-flight deduplication is process local, so two
// separate instances may still compute the same key once each.
type RedisCache struct {
	client *redis.Client
	group  singleflight.Group
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(host, port, password string, db int, poolSize, minIdleConns int, dialTimeout, readTimeout, writeTimeout time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     password,
		DB:           db,
		PoolSize:     poolSize,
		MinIdleConns: minIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// GetOrCompute returns the cached bytes for key or runs compute and
// stores its result for ttl. compute must return []byte; callers marshal
// their values so the in-memory and Redis caches round-trip identically.
func (c *RedisCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute port.ComputeFunc) (interface{}, bool, error) {
	key = keyPrefix + normalizeKey(key)

	val, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return val, true, nil
	}
	if err != redis.Nil {
		return nil, false, fmt.Errorf("failed to get from cache: %w", err)
	}

	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		if val, err := c.client.Get(ctx, key).Bytes(); err == nil {
			return val, nil
		}
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		data, ok := value.([]byte)
		if !ok {
			return nil, fmt.Errorf("redis cache requires []byte values, got %T", value)
		}
		if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
			return nil, fmt.Errorf("failed to set cache: %w", err)
		}
		return data, nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, false, nil
}

// Delete removes a value from cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, keyPrefix+normalizeKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

// Clear removes every engine-owned key, leaving other tenants of the
// Redis instance untouched.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	pipe := c.client.Pipeline()

	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}

	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
