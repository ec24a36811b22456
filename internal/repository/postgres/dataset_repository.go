package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/lib/pq"
)

// DatasetRepository serves datasets from one text-typed table per dataset,
// named <prefix><dataset>. Column names are the CSV headers, except the key
// column which is stored under the dataset's KeyField so keyed fetches resolve.
type DatasetRepository struct {
	db     *DB
	prefix string
}

func NewDatasetRepository(db *DB, tablePrefix string) *DatasetRepository {
	return &DatasetRepository{db: db, prefix: tablePrefix}
}

func (r *DatasetRepository) table(d domain.Dataset) string {
	return pq.QuoteIdentifier(r.prefix + d.String())
}

// Fetch returns the rows of dataset d whose key column equals key (all rows when key is empty).
func (r *DatasetRepository) Fetch(ctx context.Context, d domain.Dataset, key string) ([]domain.Row, error) {
	query := fmt.Sprintf("SELECT * FROM %s", r.table(d))
	args := []interface{}{}
	if key != "" {
		query += fmt.Sprintf(" WHERE %s = $1", pq.QuoteIdentifier(d.KeyField()))
		args = append(args, key)
	}

	var rows []domain.Row
	err := r.db.WithConn(ctx, func() error {
		result, err := r.db.QueryxContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query %s: %w", d, err)
		}
		defer result.Close()

		for result.Next() {
			values := make(map[string]interface{})
			if err := result.MapScan(values); err != nil {
				return fmt.Errorf("scan %s: %w", d, err)
			}
			row := make(domain.Row, len(values))
			for col, v := range values {
				row[domain.NormalizeColumnName(col)] = strings.TrimSpace(stringify(v))
			}
			rows = append(rows, row)
		}
		return result.Err()
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Replace swaps the content of dataset d for the given header and records.
func (r *DatasetRepository) Replace(ctx context.Context, d domain.Dataset, header []string, records [][]string) error {
	if len(header) == 0 {
		return fmt.Errorf("dataset %s: empty header", d)
	}

	cols := make([]string, len(header))
	defs := make([]string, len(header))
	placeholders := make([]string, len(header))
	for i, h := range header {
		cols[i] = pq.QuoteIdentifier(columnName(d, h))
		defs[i] = cols[i] + " TEXT"
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", r.table(d))); err != nil {
			return fmt.Errorf("drop %s: %w", d, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", r.table(d), strings.Join(defs, ", "))); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}

		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			r.table(d), strings.Join(cols, ", "), strings.Join(placeholders, ", ")))
		if err != nil {
			return fmt.Errorf("prepare insert %s: %w", d, err)
		}
		defer stmt.Close()

		args := make([]interface{}, len(header))
		for _, record := range records {
			for i := range args {
				args[i] = nil
				if i < len(record) {
					args[i] = record[i]
				}
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert %s: %w", d, err)
			}
		}
		return nil
	})
}

// columnName maps a CSV header to its table column. "Supplier Id" becomes
// "supplier_id" for datasets keyed on supplier_id.
func columnName(d domain.Dataset, header string) string {
	if domain.NormalizeColumnName(header) == d.KeyColumn() {
		return d.KeyField()
	}
	return strings.TrimSpace(header)
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
