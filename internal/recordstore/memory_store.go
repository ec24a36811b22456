package recordstore

import (
	"context"
	"fmt"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"golang.org/x/sync/errgroup"
)

// MemoryStore holds fully loaded datasets. Batch runs use it as a snapshot so
// every product is scored against the same data; tests use it as a fixture.
// A dataset that was never loaded is unavailable.
type MemoryStore struct {
	datasets map[domain.Dataset][]domain.Row
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{datasets: make(map[domain.Dataset][]domain.Row)}
}

// Put registers the full content of a dataset.
func (m *MemoryStore) Put(d domain.Dataset, rows []domain.Row) *MemoryStore {
	if rows == nil {
		rows = []domain.Row{}
	}
	m.datasets[d] = rows
	return m
}

// PutCSV parses and registers a CSV payload.
func (m *MemoryStore) PutCSV(d domain.Dataset, data string) *MemoryStore {
	rows, err := ParseCSV([]byte(data))
	if err != nil {
		panic(fmt.Sprintf("recordstore: bad csv for %s: %v", d, err))
	}
	return m.Put(d, rows)
}

func (m *MemoryStore) Fetch(ctx context.Context, d domain.Dataset, key string) ([]domain.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.DataUnavailable(d, err)
	}
	rows, ok := m.datasets[d]
	if !ok {
		return nil, domain.DataUnavailable(d, fmt.Errorf("dataset not loaded"))
	}
	return filter(rows, d, key), nil
}

// Snapshot loads the given datasets in full from src, concurrently, into a MemoryStore.
func Snapshot(ctx context.Context, src Fetcher, datasets ...domain.Dataset) (*MemoryStore, error) {
	loaded := make([][]domain.Row, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range datasets {
		i, d := i, d
		g.Go(func() error {
			rows, err := src.Fetch(gctx, d, "")
			if err != nil {
				return err
			}
			loaded[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := NewMemoryStore()
	for i, d := range datasets {
		m.Put(d, loaded[i])
	}
	return m, nil
}

var _ Fetcher = (*MemoryStore)(nil)
