// Package recordstore resolves datasets into rows, filtered by entity key.
package recordstore

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/andresuchdata/ecoagent/backend-go/internal/metrics"
)

// Fetcher returns the rows of a dataset matching key. An empty key returns
// every row. Failures to reach the dataset are domain.DataUnavailable errors;
// a reachable dataset with no matching rows yields an empty slice.
type Fetcher interface {
	Fetch(ctx context.Context, dataset domain.Dataset, key string) ([]domain.Row, error)
}

// ParseCSV reads a CSV payload into rows keyed by normalized header.
// A payload without a header yields no rows.
func ParseCSV(data []byte) ([]domain.Row, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []domain.Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	rows := make([]domain.Row, 0)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		if isBlank(record) {
			continue
		}
		rows = append(rows, domain.NewRow(header, record))
	}
	return rows, nil
}

// ReadCSV returns the raw header and records, used when importing into a table.
func ReadCSV(data []byte) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("CSV has no header")
	}
	records := make([][]string, 0, len(all)-1)
	for _, rec := range all[1:] {
		if !isBlank(rec) {
			records = append(records, rec)
		}
	}
	return all[0], records, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if v != "" {
			return false
		}
	}
	return true
}

func filter(rows []domain.Row, d domain.Dataset, key string) []domain.Row {
	if key == "" {
		return rows
	}
	out := make([]domain.Row, 0)
	for _, row := range rows {
		if row.MatchesKey(d, key) {
			out = append(out, row)
		}
	}
	return out
}

func observe(d domain.Dataset, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DatasetFetchesTotal.WithLabelValues(d.String(), status).Inc()
	metrics.DatasetFetchDuration.WithLabelValues(d.String()).Observe(time.Since(start).Seconds())
}
