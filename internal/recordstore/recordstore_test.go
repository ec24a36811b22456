package recordstore

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/andresuchdata/ecoagent/backend-go/internal/cache"
	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/andresuchdata/ecoagent/backend-go/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inventoryCSV = "\xef\xbb\xbfProduct ID,location_id,quantity,unit_cost,days_to_expiry\n" +
	"P1,S1,100,2.5,3\n" +
	",,,,\n" +
	"P2,S1,5,1,10\n" +
	"P1,S2,50,3,7\n"

// flakyStorage fails the first n GetObject calls.
type flakyStorage struct {
	storage.ObjectStorage
	failures int32
	calls    int32
	err      error
}

func (f *flakyStorage) GetObject(ctx context.Context, key string) ([]byte, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failures {
		return nil, f.err
	}
	return f.ObjectStorage.GetObject(ctx, key)
}

func newLocal(t *testing.T) storage.ObjectStorage {
	t.Helper()
	client, err := storage.NewLocalClient(t.TempDir())
	require.NoError(t, err)
	return client
}

func TestParseCSV(t *testing.T) {
	rows, err := ParseCSV([]byte(inventoryCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "P1", rows[0].Get("product_id"))
	assert.Equal(t, "S2", rows[2].Get("location_id"))

	rows, err = ParseCSV(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCSVStore_FetchFiltersByKey(t *testing.T) {
	ctx := context.Background()
	objects := newLocal(t)
	store := NewCSVStore(objects, nil, CSVOptions{Prefix: "input"})
	require.NoError(t, objects.PutObject(ctx, "input/inventory_data.csv", []byte(inventoryCSV)))

	rows, err := store.Fetch(ctx, domain.DatasetInventory, "P1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = store.Fetch(ctx, domain.DatasetInventory, "P404")
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = store.Fetch(ctx, domain.DatasetInventory, "")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestCSVStore_MissingDatasetIsUnavailable(t *testing.T) {
	flaky := &flakyStorage{ObjectStorage: newLocal(t)}
	store := NewCSVStore(flaky, nil, CSVOptions{Prefix: "input", Attempts: 3})

	_, err := store.Fetch(context.Background(), domain.DatasetWeather, "S1")
	require.Error(t, err)
	assert.Equal(t, domain.KindDataUnavailable, domain.KindOf(err))
	assert.True(t, errors.Is(err, storage.ErrObjectNotFound))
	// not found is not retried
	assert.EqualValues(t, 1, atomic.LoadInt32(&flaky.calls))
}

func TestCSVStore_RetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t)
	require.NoError(t, local.PutObject(ctx, "input/sales_data.csv", []byte("product_id,units_sold\nP1,3\n")))

	flaky := &flakyStorage{ObjectStorage: local, failures: 2, err: errors.New("connection reset")}
	store := NewCSVStore(flaky, nil, CSVOptions{Prefix: "input", Attempts: 3, Backoff: time.Millisecond})

	rows, err := store.Fetch(ctx, domain.DatasetSales, "P1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.EqualValues(t, 3, atomic.LoadInt32(&flaky.calls))
}

func TestCSVStore_UsesCacheAndInvalidatesOnStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	flaky := &flakyStorage{ObjectStorage: newLocal(t)}
	store := NewCSVStore(flaky, cache.NewRedisDatasetCache(client, time.Minute), CSVOptions{Prefix: "input"})

	require.NoError(t, store.Store(ctx, domain.DatasetWaste, []byte("product_id,waste_quantity\nP1,2\n")))

	_, err := store.Fetch(ctx, domain.DatasetWaste, "P1")
	require.NoError(t, err)
	_, err = store.Fetch(ctx, domain.DatasetWaste, "P1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&flaky.calls))

	require.NoError(t, store.Store(ctx, domain.DatasetWaste, []byte("product_id,waste_quantity\nP1,2\nP1,4\n")))
	rows, err := store.Fetch(ctx, domain.DatasetWaste, "P1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.EqualValues(t, 2, atomic.LoadInt32(&flaky.calls))

	require.NoError(t, store.Flush(ctx))
	_, err = store.Fetch(ctx, domain.DatasetWaste, "P1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&flaky.calls))
}

func TestCSVStore_FileOverride(t *testing.T) {
	store := NewCSVStore(newLocal(t), nil, CSVOptions{
		Prefix: "data",
		Files:  map[string]string{"weather": "wx.csv"},
	})
	assert.Equal(t, "data/wx.csv", store.ObjectKey(domain.DatasetWeather))
	assert.Equal(t, "data/sales_data.csv", store.ObjectKey(domain.DatasetSales))
}

func TestMemoryStoreAndSnapshot(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryStore().
		PutCSV(domain.DatasetInventory, inventoryCSV).
		PutCSV(domain.DatasetWeather, "store_id,date\nS1,2024-01-01\n")

	snap, err := Snapshot(ctx, src, domain.DatasetInventory, domain.DatasetWeather)
	require.NoError(t, err)

	rows, err := snap.Fetch(ctx, domain.DatasetWeather, "S1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = Snapshot(ctx, src, domain.DatasetSales)
	assert.Equal(t, domain.KindDataUnavailable, domain.KindOf(err))
}

type failingSource struct{}

func (failingSource) Fetch(ctx context.Context, d domain.Dataset, key string) ([]domain.Row, error) {
	return nil, errors.New("relation does not exist")
}

func TestSQLStore_WrapsErrors(t *testing.T) {
	_, err := NewSQLStore(failingSource{}, time.Second).Fetch(context.Background(), domain.DatasetSales, "P1")
	assert.Equal(t, domain.KindDataUnavailable, domain.KindOf(err))
}
