package recordstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/ecoagent/backend-go/internal/cache"
	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/andresuchdata/ecoagent/backend-go/internal/metrics"
	"github.com/andresuchdata/ecoagent/backend-go/internal/storage"
	"github.com/rs/zerolog/log"
)

// CSVOptions tunes a CSVStore.
type CSVOptions struct {
	// Prefix is the directory the dataset files live under.
	Prefix string
	// Files overrides the object name per dataset.
	Files        map[string]string
	FetchTimeout time.Duration
	Attempts     int
	Backoff      time.Duration
}

// CSVStore reads datasets as CSV objects from an ObjectStorage.
type CSVStore struct {
	storage storage.ObjectStorage
	cache   cache.DatasetCache
	opts    CSVOptions
}

func NewCSVStore(objects storage.ObjectStorage, datasetCache cache.DatasetCache, opts CSVOptions) *CSVStore {
	if datasetCache == nil {
		datasetCache = cache.NewNoopDatasetCache()
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	return &CSVStore{storage: objects, cache: datasetCache, opts: opts}
}

// ObjectKey returns the storage key a dataset is read from and written to.
func (s *CSVStore) ObjectKey(d domain.Dataset) string {
	name := d.DefaultFile()
	if override, ok := s.opts.Files[d.String()]; ok && override != "" {
		name = override
	}
	return storage.Key(s.opts.Prefix, name)
}

func (s *CSVStore) Fetch(ctx context.Context, d domain.Dataset, key string) (rows []domain.Row, err error) {
	start := time.Now()
	defer func() { observe(d, start, err) }()

	data, err := s.Load(ctx, d)
	if err != nil {
		return nil, err
	}

	all, err := ParseCSV(data)
	if err != nil {
		return nil, domain.DataUnavailable(d, err)
	}
	return filter(all, d, key), nil
}

// Load returns the raw CSV payload of a dataset, served from cache when possible.
func (s *CSVStore) Load(ctx context.Context, d domain.Dataset) ([]byte, error) {
	objectKey := s.ObjectKey(d)

	if payload, ok, err := s.cache.Get(ctx, objectKey); err != nil {
		log.Warn().Err(err).Str("key", objectKey).Msg("dataset cache read failed")
	} else if ok {
		metrics.DatasetCacheHits.WithLabelValues("hit").Inc()
		return payload, nil
	}
	metrics.DatasetCacheHits.WithLabelValues("miss").Inc()

	data, err := s.download(ctx, objectKey)
	if err != nil {
		return nil, domain.DataUnavailable(d, err)
	}

	if err := s.cache.Set(ctx, objectKey, data); err != nil {
		log.Warn().Err(err).Str("key", objectKey).Msg("dataset cache write failed")
	}
	return data, nil
}

func (s *CSVStore) download(ctx context.Context, objectKey string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.Attempts; attempt++ {
		data, err := s.getOnce(ctx, objectKey)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if errors.Is(err, storage.ErrObjectNotFound) || ctx.Err() != nil {
			break
		}
		if attempt < s.opts.Attempts {
			log.Debug().Err(err).Str("key", objectKey).Int("attempt", attempt).Msg("retrying dataset download")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.opts.Backoff * time.Duration(attempt)):
			}
		}
	}
	return nil, lastErr
}

func (s *CSVStore) getOnce(ctx context.Context, objectKey string) ([]byte, error) {
	if s.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
	}
	data, err := s.storage.GetObject(ctx, objectKey)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", objectKey, err)
	}
	return data, nil
}

// Store validates a CSV payload and writes it as the dataset's object,
// invalidating the cached copy.
func (s *CSVStore) Store(ctx context.Context, d domain.Dataset, data []byte) error {
	if _, err := ParseCSV(data); err != nil {
		return domain.Malformed("csv", err.Error())
	}
	objectKey := s.ObjectKey(d)
	if err := s.storage.PutObject(ctx, objectKey, data); err != nil {
		return domain.DataUnavailable(d, err)
	}
	if err := s.cache.Invalidate(ctx, objectKey); err != nil {
		log.Warn().Err(err).Str("key", objectKey).Msg("dataset cache invalidation failed")
	}
	return nil
}

// Flush drops every cached dataset payload.
func (s *CSVStore) Flush(ctx context.Context) error {
	return s.cache.InvalidateAll(ctx)
}

// List returns the objects under the store prefix.
func (s *CSVStore) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	return s.storage.ListObjects(ctx, s.opts.Prefix)
}

var _ Fetcher = (*CSVStore)(nil)
