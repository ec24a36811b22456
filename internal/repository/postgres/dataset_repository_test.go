package postgres

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*DatasetRepository, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	db := Wrap(sqlx.NewDb(raw, "postgres"), 2)
	return NewDatasetRepository(db, "eco_"), mock
}

func TestDatasetRepository_FetchFiltersOnKey(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "eco_inventory" WHERE "product_id" = $1`)).
		WithArgs("P1").
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "Location ID", "quantity"}).
			AddRow("P1", "S1", []byte(" 10 ")).
			AddRow("P1", "S2", nil))

	rows, err := repo.Fetch(context.Background(), domain.DatasetInventory, "P1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "S1", rows[0].Get("location_id"))
	assert.Equal(t, "10", rows[0].Get("quantity"))
	assert.Equal(t, "", rows[1].Get("quantity"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetRepository_FetchAll(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "eco_weather"`)).
		WillReturnRows(sqlmock.NewRows([]string{"store_id"}).AddRow("S1"))

	rows, err := repo.Fetch(context.Background(), domain.DatasetWeather, "")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetRepository_Replace(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "eco_sales"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "eco_sales" ("product_id" TEXT, "units_sold" TEXT)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "eco_sales" ("product_id", "units_sold") VALUES ($1, $2)`))
	prep.ExpectExec().WithArgs("P1", "4").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("P2", nil).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := repo.Replace(context.Background(), domain.DatasetSales,
		[]string{"product_id", "units_sold"},
		[][]string{{"P1", "4"}, {"P2"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatasetRepository_ReplaceStoresKeyColumnForKeyedFetch(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "eco_supplier_esg"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "eco_supplier_esg" ("supplier_id" TEXT, "Provider" TEXT, "Overall score" TEXT)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "eco_supplier_esg" ("supplier_id", "Provider", "Overall score") VALUES ($1, $2, $3)`))
	prep.ExpectExec().WithArgs("S1", "EcoVadis", "72").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Replace(ctx, domain.DatasetSupplierESG,
		[]string{"Supplier Id", "Provider", "Overall score"},
		[][]string{{"S1", "EcoVadis", "72"}}))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "eco_supplier_esg" WHERE "supplier_id" = $1`)).
		WithArgs("S1").
		WillReturnRows(sqlmock.NewRows([]string{"supplier_id", "Provider", "Overall score"}).
			AddRow("S1", "EcoVadis", "72"))

	rows, err := repo.Fetch(ctx, domain.DatasetSupplierESG, "S1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].MatchesKey(domain.DatasetSupplierESG, "S1"))
	assert.Equal(t, "72", rows[0].Get("overall_score"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
