// Package cache puts a Redis read-through cache in front of an object store.
// Hits are not revalidated. Writes made through Store drop the cached copy;
// writes that bypass it, such as a rerun from another process, stay hidden
// until the TTL expires.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/coincap-data/internal/config"
	"github.com/rickgao/coincap-data/internal/objstore"
)

const keyPrefix = "coincap:object:"

var _ objstore.Store = (*Store)(nil)

// Store caches Get results of an inner store in Redis. Cache errors are
// logged and fall through to the inner store.
type Store struct {
	inner  objstore.Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewClient creates a Redis client from config.
func NewClient(cfg config.CacheConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// New wraps inner with a Redis cache.
func New(inner objstore.Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Ping checks the connection to the Redis server.
func (s *Store) Ping(ctx context.Context) string {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Sprintf("down: %v", err)
	}
	return "up"
}

// cacheKey returns the Redis key for an object key.
func cacheKey(key string) string {
	return keyPrefix + key
}

// List implements objstore.Store. Listings are never cached.
func (s *Store) List(ctx context.Context, prefix string) ([]objstore.ObjectInfo, error) {
	return s.inner.List(ctx, prefix)
}

// Get implements objstore.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, cacheKey(key)).Bytes()
	switch {
	case err == nil:
		s.logger.Debug("cache hit", "key", key)
		return data, nil
	case errors.Is(err, redis.Nil):
	default:
		s.logger.Warn("cache read failed", "key", key, "error", err)
	}

	data, err = s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := s.client.Set(ctx, cacheKey(key), data, s.ttl).Err(); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return data, nil
}

// Put implements objstore.Store. The cached copy is dropped after a
// successful write.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := s.inner.Put(ctx, key, data); err != nil {
		return err
	}
	if err := s.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		s.logger.Warn("cache invalidation failed", "key", key, "error", err)
	}
	return nil
}
