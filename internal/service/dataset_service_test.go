package service

import (
	"context"
	"testing"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/andresuchdata/ecoagent/backend-go/internal/drive"
	"github.com/andresuchdata/ecoagent/backend-go/internal/recordstore"
	"github.com/andresuchdata/ecoagent/backend-go/internal/storage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const salesCSV = "product_id,store_id,date,units_sold\nP1,S1,2024-06-01,4\nP2,S1,2024-06-01,9\n"

type recordingImporter struct {
	calls   map[domain.Dataset]int
	header  []string
	records [][]string
	err     error
}

func (r *recordingImporter) Replace(ctx context.Context, d domain.Dataset, header []string, records [][]string) error {
	if r.calls == nil {
		r.calls = make(map[domain.Dataset]int)
	}
	r.calls[d]++
	if r.err != nil {
		return r.err
	}
	r.header, r.records = header, records
	return nil
}

type staticFolder []drive.FolderFile

func (f staticFolder) PullFolderCSV(ctx context.Context, path string) ([]drive.FolderFile, error) {
	return f, nil
}

func newDatasetService(t *testing.T) *DatasetService {
	t.Helper()
	local, err := storage.NewLocalClient(t.TempDir())
	require.NoError(t, err)
	store := recordstore.NewCSVStore(local, nil, recordstore.CSVOptions{Prefix: "input", Attempts: 1})
	return NewDatasetService(store, store)
}

func xlsxOf(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDatasetService_UploadAndFetch(t *testing.T) {
	ctx := context.Background()
	svc := newDatasetService(t)

	res, err := svc.Upload(ctx, domain.DatasetSales, "sales.csv", []byte(salesCSV))
	require.NoError(t, err)
	assert.Equal(t, "input/sales_data.csv", res.ObjectKey)
	assert.Equal(t, 2, res.Rows)
	assert.False(t, res.Converted)
	assert.False(t, res.Imported)

	rows, err := svc.Fetch(ctx, domain.DatasetSales, "P2")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "9", rows[0].Get("units_sold"))
}

func TestDatasetService_UploadConvertsSpreadsheets(t *testing.T) {
	ctx := context.Background()
	svc := newDatasetService(t)

	data := xlsxOf(t,
		[]interface{}{"store_id", "date", "temp_high", "temp_low", "precipitation"},
		[]interface{}{"S1", "2024-06-01", 14, 6, 5},
	)
	res, err := svc.Upload(ctx, domain.DatasetWeather, "weather.xlsx", data)
	require.NoError(t, err)
	assert.True(t, res.Converted)
	assert.Equal(t, 1, res.Rows)

	rows, err := svc.Fetch(ctx, domain.DatasetWeather, "S1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "14", rows[0].Get("temp_high"))
}

func TestDatasetService_UploadRejectsBadPayloads(t *testing.T) {
	svc := newDatasetService(t)

	_, err := svc.Upload(context.Background(), domain.DatasetSales, "sales.xlsx", []byte("not a workbook"))
	assert.Equal(t, domain.KindMalformed, domain.KindOf(err))
}

func TestDatasetService_ImportMirrorsIntoTables(t *testing.T) {
	ctx := context.Background()
	importer := &recordingImporter{}
	svc := newDatasetService(t)

	_, err := svc.Import(ctx, domain.DatasetSales)
	assert.ErrorIs(t, err, ErrImportDisabled)

	svc.WithImporter(importer)
	res, err := svc.Upload(ctx, domain.DatasetSales, "sales.csv", []byte(salesCSV))
	require.NoError(t, err)
	assert.True(t, res.Imported)
	assert.Equal(t, []string{"product_id", "store_id", "date", "units_sold"}, importer.header)
	assert.Len(t, importer.records, 2)

	n, err := svc.Import(ctx, domain.DatasetSales)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, importer.calls[domain.DatasetSales])
}

func TestDatasetService_FailedImportKeepsStoredObject(t *testing.T) {
	ctx := context.Background()
	svc := newDatasetService(t)

	_, err := svc.Upload(ctx, domain.DatasetSales, "sales.csv", []byte(salesCSV))
	require.NoError(t, err)

	svc.WithImporter(&recordingImporter{err: errors.New("connection refused")})
	replacement := "product_id,store_id,date,units_sold\nP2,S1,2024-06-02,1\n"
	res, err := svc.Upload(ctx, domain.DatasetSales, "sales.csv", []byte(replacement))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "connection refused")

	rows, err := svc.Fetch(ctx, domain.DatasetSales, "P2")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "9", rows[0].Get("units_sold"))
}

func TestDatasetService_List(t *testing.T) {
	ctx := context.Background()
	svc := newDatasetService(t)
	_, err := svc.Upload(ctx, domain.DatasetSales, "sales.csv", []byte(salesCSV))
	require.NoError(t, err)

	infos, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, len(domain.Datasets()))
	for _, info := range infos {
		assert.Equal(t, info.Dataset == domain.DatasetSales, info.Present, info.Dataset)
	}
}

func TestDatasetService_SyncFromDrive(t *testing.T) {
	ctx := context.Background()
	svc := newDatasetService(t)

	_, err := svc.SyncFromDrive(ctx, "")
	assert.ErrorIs(t, err, ErrDriveDisabled)

	svc.WithDrive(staticFolder{
		{Name: "sales_data.csv", SourceName: "sales_data.xlsx", Data: []byte(salesCSV)},
		{Name: "notes.csv", SourceName: "notes.csv", Data: []byte("a,b\n1,2\n")},
	}, "ecoagent/input")

	report, err := svc.SyncFromDrive(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "ecoagent/input", report.Folder)
	require.Len(t, report.Synced, 1)
	assert.Equal(t, domain.DatasetSales, report.Synced[0].Dataset)
	assert.Equal(t, "sales_data.xlsx", report.Synced[0].Source)
	assert.True(t, report.Synced[0].Converted)
	assert.Equal(t, []string{"notes.csv"}, report.Skipped)

	rows, err := svc.Fetch(ctx, domain.DatasetSales, "")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
