package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const flagKeyPrefix = "session:active:"

// RedisFlags is a FlagStore backed by Redis. Flags expire after ttl; zero
// keeps them forever.
type RedisFlags struct {
	client *redis.Client
	ttl    time.Duration
}

var _ FlagStore = (*RedisFlags)(nil)

// NewRedisFlags connects to Redis and verifies the connection.
func NewRedisFlags(ctx context.Context, opts *redis.Options, ttl time.Duration) (*RedisFlags, error) {
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisFlags{client: rdb, ttl: ttl}, nil
}

func flagKey(device string) string {
	return flagKeyPrefix + device
}

func (r *RedisFlags) Has(ctx context.Context, device string) (bool, error) {
	n, err := r.client.Exists(ctx, flagKey(device)).Result()
	if err != nil {
		return false, fmt.Errorf("check session flag: %w", err)
	}
	return n > 0, nil
}

func (r *RedisFlags) Set(ctx context.Context, device string) error {
	if err := r.client.Set(ctx, flagKey(device), "1", r.ttl).Err(); err != nil {
		return fmt.Errorf("set session flag: %w", err)
	}
	return nil
}

func (r *RedisFlags) Clear(ctx context.Context, device string) error {
	if err := r.client.Del(ctx, flagKey(device)).Err(); err != nil {
		return fmt.Errorf("clear session flag: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (r *RedisFlags) Close() error {
	return r.client.Close()
}
