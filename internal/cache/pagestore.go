package cache

import (
	"context"
	"errors"
	"time"

	"github.com/alex-zharinov/hw05-final/internal/observability"

	"github.com/redis/go-redis/v9"
)

// PagePrefix namespaces rendered pages in Redis.
const PagePrefix = "pagecache:"

const storeTimeout = 2 * time.Second

// PageStore holds rendered pages in Redis for the Fiber cache middleware. It
// satisfies fiber.Storage. Without Redis the middleware keeps its own in-memory
// storage, so there is no PageStore.
type PageStore struct {
	rdb *redis.Client
}

// NewPageStore returns a store backed by rdb, or nil when rdb is nil.
func NewPageStore(rdb *redis.Client) *PageStore {
	if rdb == nil {
		return nil
	}
	return &PageStore{rdb: rdb}
}

// Get returns nil, nil for a missing or expired key.
func (s *PageStore) Get(key string) ([]byte, error) {
	if len(key) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	ctx, span := observability.TraceRedisOperation(ctx, "page.get")
	defer span.End()

	val, err := s.rdb.Get(ctx, PagePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

// Set stores val under key. A zero exp keeps the entry until Delete or Reset.
func (s *PageStore) Set(key string, val []byte, exp time.Duration) error {
	if len(key) == 0 || len(val) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	ctx, span := observability.TraceRedisOperation(ctx, "page.set")
	defer span.End()
	return s.rdb.Set(ctx, PagePrefix+key, val, exp).Err()
}

// Delete removes key.
func (s *PageStore) Delete(key string) error {
	if len(key) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	return s.rdb.Del(ctx, PagePrefix+key).Err()
}

// Reset drops every cached page. Keys outside PagePrefix are left alone.
func (s *PageStore) Reset() error {
	_, err := ClearPages(context.Background(), s.rdb)
	return err
}

// Close is a no-op; the Redis client is owned by the caller.
func (s *PageStore) Close() error {
	return nil
}

// ClearPages deletes every key under PagePrefix and reports how many were removed.
func ClearPages(ctx context.Context, rdb *redis.Client) (int, error) {
	if rdb == nil {
		return 0, nil
	}
	ctx, span := observability.TraceRedisOperation(ctx, "page.clear")
	defer span.End()

	removed := 0
	iter := rdb.Scan(ctx, 0, PagePrefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			n, err := rdb.Del(ctx, batch...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	if len(batch) > 0 {
		n, err := rdb.Del(ctx, batch...).Result()
		if err != nil {
			return removed, err
		}
		removed += int(n)
	}
	return removed, nil
}
