// Package cache stores computed family insights in Redis for the dashboard
// read path.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrInvalidConfig is returned when the cache cannot be configured
var ErrInvalidConfig = errors.New("cache: invalid configuration")

// Config holds the configuration for the Redis client
type Config struct {
	Addr             string
	Password         string
	DB               int
	KeyPrefix        string
	ConnTimeout      time.Duration
	OperationTimeout time.Duration
}

// DefaultConfig returns a configuration with the standard timeouts and prefix
func DefaultConfig(addr string) Config {
	return Config{
		Addr:             addr,
		KeyPrefix:        "chorequest:",
		ConnTimeout:      5 * time.Second,
		OperationTimeout: 2 * time.Second,
	}
}

// RedisCache is a byte cache backed by Redis
type RedisCache struct {
	client *redis.Client
	config Config
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: address is required", ErrInvalidConfig)
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.ConnTimeout,
		MaxRetries:  1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, config: cfg}, nil
}

// withContext bounds the operation when the caller set no deadline
func (c *RedisCache) withContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok && c.config.OperationTimeout > 0 {
		return context.WithTimeout(ctx, c.config.OperationTimeout)
	}
	return ctx, func() {}
}

// Get returns the cached value and whether it was present
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := c.withContext(ctx)
	defer cancel()

	val, err := c.client.Get(ctx, c.config.KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores a value with a TTL
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := c.withContext(ctx)
	defer cancel()

	if err := c.client.Set(ctx, c.config.KeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes the given keys. Missing keys are not an error.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := c.withContext(ctx)
	defer cancel()

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = c.config.KeyPrefix + key
	}
	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("cache delete %v: %w", keys, err)
	}
	return nil
}

// Close releases the Redis connection pool
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Nop is a cache that never stores anything, used when Redis is not configured
type Nop struct{}

// Get always misses
func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

// Set discards the value
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete has nothing to remove
func (Nop) Delete(context.Context, ...string) error { return nil }

// InsightsKey names the cache entry for a family's insights on a local date
func InsightsKey(familyID int64, localDate string) string {
	return fmt.Sprintf("insights:%d:%s", familyID, localDate)
}
