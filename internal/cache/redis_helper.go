package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net"
	"time"

	"github.com/andresuchdata/ecoagent/backend-go/internal/config"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	defaultCacheTTL = time.Minute
	pingTimeout     = 5 * time.Second

	// Raw payloads live under dataset:raw:<sha1(object key)>.
	datasetKeyPrefix     = "dataset:raw"
	datasetScanBatchSize = 100
)

// dialDatasetRedis connects to the dataset cache and checks it answers.
func dialDatasetRedis(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := datasetRedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping dataset cache at %s", opts.Addr)
	}

	log.Info().Str("addr", opts.Addr).Int("db", opts.DB).Msg("dataset cache connected")
	return client, nil
}

// datasetRedisOptions prefers REDIS_URL and falls back to host and port.
func datasetRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid redis url")
		}
		return opt, nil
	}

	host := cfg.RedisHost
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.RedisPort
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func datasetTTL(seconds int) time.Duration {
	if seconds <= 0 {
		return defaultCacheTTL
	}
	return time.Duration(seconds) * time.Second
}

// datasetKey hashes the object key so storage paths never leak into key names.
func datasetKey(objectKey string) string {
	sum := sha1.Sum([]byte(objectKey))
	return datasetKeyPrefix + ":" + hex.EncodeToString(sum[:])
}

// flushDatasetKeys removes every cached dataset payload and nothing else.
func flushDatasetKeys(ctx context.Context, client *redis.Client) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	pattern := datasetKeyPrefix + ":*"
	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, datasetScanBatchSize).Result()
		if err != nil {
			return removed, errors.Wrap(err, "scan dataset keys")
		}
		if len(keys) > 0 {
			n, err := client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, errors.Wrap(err, "delete dataset keys")
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	log.Debug().Int("keys", removed).Msg("dataset cache flushed")
	return removed, nil
}
