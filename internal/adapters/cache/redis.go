package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/shotchart/pkg/logger"
)

// DefaultKeyPrefix namespaces spec entries in a shared Redis.
const DefaultKeyPrefix = "shotchart:spec:"

// Redis stores specs as string values in Redis.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger logger.Logger
}

// RedisOption configures a Redis cache.
type RedisOption func(*Redis)

// WithTTL expires entries after ttl. Zero keeps them until evicted by Redis.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithRedisLogger sets the logger used for Redis errors.
func WithRedisLogger(log logger.Logger) RedisOption {
	return func(r *Redis) {
		if log != nil {
			r.logger = log
		}
	}
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: DefaultKeyPrefix, logger: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get implements Cache. Redis errors are logged and reported as a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.logger.Warn(ctx, "redis get failed", logger.String("key", key), logger.Error(err))
		return nil, false
	}
	return val, true
}

// Put implements Cache.
func (r *Redis) Put(ctx context.Context, key string, val []byte) error {
	return r.client.Set(ctx, r.prefix+key, val, r.ttl).Err()
}

// Len implements Cache by scanning the key prefix.
func (r *Redis) Len(ctx context.Context) int {
	var (
		cursor uint64
		n      int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 200).Result()
		if err != nil {
			r.logger.Warn(ctx, "redis scan failed", logger.Error(err))
			return n
		}
		n += len(keys)
		if next == 0 {
			return n
		}
		cursor = next
	}
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
