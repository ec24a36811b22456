package recordstore

import (
	"context"
	"time"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
)

// TableSource is implemented by postgres.DatasetRepository.
type TableSource interface {
	Fetch(ctx context.Context, d domain.Dataset, key string) ([]domain.Row, error)
}

// SQLStore serves datasets from database tables.
type SQLStore struct {
	source  TableSource
	timeout time.Duration
}

func NewSQLStore(source TableSource, timeout time.Duration) *SQLStore {
	return &SQLStore{source: source, timeout: timeout}
}

func (s *SQLStore) Fetch(ctx context.Context, d domain.Dataset, key string) (rows []domain.Row, err error) {
	start := time.Now()
	defer func() { observe(d, start, err) }()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	rows, err = s.source.Fetch(ctx, d, key)
	if err != nil {
		return nil, domain.DataUnavailable(d, err)
	}
	if rows == nil {
		rows = []domain.Row{}
	}
	return rows, nil
}

var _ Fetcher = (*SQLStore)(nil)
