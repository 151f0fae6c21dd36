package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a durable Store on a Redis server. All keys live under a
// namespace so several deployments can share one database.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisStore connects to redisURL (redis:// or rediss://) and pings it
func NewRedisStore(ctx context.Context, redisURL, namespace string) (*RedisStore, error) {
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(rdb, namespace), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(rdb *redis.Client, namespace string) *RedisStore {
	if namespace != "" && !strings.HasSuffix(namespace, ":") {
		namespace += ":"
	}
	return &RedisStore{rdb: rdb, namespace: namespace}
}

// ParseRedisURL validates the scheme and parses a Redis URL into options
func ParseRedisURL(raw string) (*redis.Options, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("redis URL is empty")
	}
	if !strings.HasPrefix(raw, "redis://") && !strings.HasPrefix(raw, "rediss://") {
		return nil, fmt.Errorf("unsupported redis URL scheme: %s", raw)
	}
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return opts, nil
}

// Close releases the connection pool
func (rs *RedisStore) Close() error {
	return rs.rdb.Close()
}

func (rs *RedisStore) key(k string) string {
	return rs.namespace + k
}

// Get implements Store
func (rs *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := rs.rdb.Get(ctx, rs.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

// Set implements Store. Values do not expire.
func (rs *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := rs.rdb.Set(ctx, rs.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Remove implements Store
func (rs *RedisStore) Remove(ctx context.Context, key string) error {
	if err := rs.rdb.Del(ctx, rs.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Keys implements Store with SCAN
func (rs *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := rs.rdb.Scan(ctx, 0, rs.key(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), rs.namespace))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}
