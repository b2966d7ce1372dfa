package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/syssam/quarry"
)

// scanCount is the COUNT hint of the SCAN calls of DeletePrefix.
const scanCount = 100

// Redis is a quarry.Cache backed by Redis. All keys are stored under the
// namespace, which Clear removes.
type Redis struct {
	client    redis.UniversalClient
	namespace string
}

// RedisOption configures a Redis cache.
type RedisOption func(*Redis)

// WithNamespace prefixes every key. Default is "quarry-cache:".
func WithNamespace(ns string) RedisOption {
	return func(r *Redis) {
		r.namespace = ns
	}
}

// NewRedis returns a cache over client.
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	sc := sql.NewStatementCache(cache.NewRedis(rdb), time.Hour)
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, namespace: "quarry-cache:"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OpenRedis parses a redis:// URL and returns a cache over a new client.
func OpenRedis(url string, opts ...RedisOption) (*Redis, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	return NewRedis(redis.NewClient(o), opts...), nil
}

// Get implements quarry.Cache.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: redis get %q: %w", key, err)
	}
	return b, nil
}

// Set implements quarry.Cache.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.namespace+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set %q: %w", key, err)
	}
	return nil
}

// Delete implements quarry.Cache.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.namespace+key).Err(); err != nil {
		return fmt.Errorf("cache: redis del %q: %w", key, err)
	}
	return nil
}

// DeletePrefix implements quarry.Cache. Keys are collected with SCAN, so
// keys written concurrently may survive.
func (r *Redis) DeletePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.namespace+prefix+"*", scanCount).Result()
		if err != nil {
			return fmt.Errorf("cache: redis scan %q: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache: redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Clear implements quarry.Cache by removing the namespace.
func (r *Redis) Clear(ctx context.Context) error {
	return r.DeletePrefix(ctx, "")
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ quarry.Cache = (*Redis)(nil)
