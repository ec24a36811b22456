package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/ecoagent/backend-go/internal/config"
	"github.com/redis/go-redis/v9"
)

// DatasetCache stores raw dataset payloads keyed by their object key.
type DatasetCache interface {
	Get(ctx context.Context, objectKey string) ([]byte, bool, error)
	Set(ctx context.Context, objectKey string, payload []byte) error
	Invalidate(ctx context.Context, objectKey string) error
	InvalidateAll(ctx context.Context) error
}

type redisDatasetCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopDatasetCache struct{}

func NewDatasetCache(ctx context.Context, cfg config.CacheConfig) (DatasetCache, error) {
	if !cfg.Enabled {
		return &noopDatasetCache{}, nil
	}

	client, err := dialDatasetRedis(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisDatasetCache(client, datasetTTL(cfg.DatasetTTLSeconds)), nil
}

// NewRedisDatasetCache wraps an existing client.
func NewRedisDatasetCache(client *redis.Client, ttl time.Duration) DatasetCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisDatasetCache{client: client, ttl: ttl}
}

func NewNoopDatasetCache() DatasetCache {
	return &noopDatasetCache{}
}

func (c *redisDatasetCache) Get(ctx context.Context, objectKey string) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, datasetKey(objectKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	return payload, true, nil
}

func (c *redisDatasetCache) Set(ctx context.Context, objectKey string, payload []byte) error {
	if err := c.client.Set(ctx, datasetKey(objectKey), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisDatasetCache) Invalidate(ctx context.Context, objectKey string) error {
	return c.client.Del(ctx, datasetKey(objectKey)).Err()
}

func (c *redisDatasetCache) InvalidateAll(ctx context.Context) error {
	_, err := flushDatasetKeys(ctx, c.client)
	return err
}

func (n *noopDatasetCache) Get(ctx context.Context, objectKey string) ([]byte, bool, error) {
	return nil, false, nil
}

func (n *noopDatasetCache) Set(ctx context.Context, objectKey string, payload []byte) error {
	return nil
}

func (n *noopDatasetCache) Invalidate(ctx context.Context, objectKey string) error {
	return nil
}

func (n *noopDatasetCache) InvalidateAll(ctx context.Context) error {
	return nil
}
