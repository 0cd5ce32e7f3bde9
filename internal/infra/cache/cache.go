// Package cache provides the volatile tier of the receipt extraction
// cache: a TTL-bounded byte store that may live in process memory or in a
// shared Redis instance. The durable tier is a Postgres table owned by the
// receipts service.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FreshKeepCo/inventory-service/config"
	"github.com/go-redis/redis/v8"
)

// ErrMiss is returned when a key is absent or its entry has expired.
var ErrMiss = errors.New("cache: miss")

// Store is a TTL-bounded key/value store. Values are opaque bytes so the
// same interface backs both the in-memory and the Redis tier.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// New builds the volatile cache tier selected by configuration: "memory"
// (default) or "redis" for deployments with multiple replicas.
func New(cfg config.Config) (Store, error) {
	cacheCfg := cfg.GetCacheConfig()
	switch cacheCfg.Backend {
	case "", "memory":
		return NewMemoryStore(cacheCfg.MemoryTTL, cacheCfg.MaxSize), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress(),
			Username: cfg.RedisUser,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDb,
		})
		return NewRedisStore(client, cacheCfg.MemoryTTL), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cacheCfg.Backend)
	}
}

// RedisStore is the Redis-backed volatile tier. TTL enforcement is
// delegated to the server.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
