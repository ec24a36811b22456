package service

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
	"github.com/andresuchdata/ecoagent/backend-go/internal/drive"
	"github.com/andresuchdata/ecoagent/backend-go/internal/recordstore"
	"github.com/andresuchdata/ecoagent/backend-go/internal/storage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrImportDisabled = errors.New("database import is not configured")
	ErrDriveDisabled  = errors.New("drive sync is not configured")
)

// DatasetObjects is the raw CSV side of the record store.
type DatasetObjects interface {
	ObjectKey(d domain.Dataset) string
	Load(ctx context.Context, d domain.Dataset) ([]byte, error)
	Store(ctx context.Context, d domain.Dataset, data []byte) error
	List(ctx context.Context) ([]storage.ObjectInfo, error)
}

// TableImporter replaces a dataset table with CSV content.
type TableImporter interface {
	Replace(ctx context.Context, d domain.Dataset, header []string, records [][]string) error
}

// FolderSource pulls CSV files from a remote folder.
type FolderSource interface {
	PullFolderCSV(ctx context.Context, path string) ([]drive.FolderFile, error)
}

type UploadResult struct {
	Dataset   domain.Dataset `json:"dataset"`
	ObjectKey string         `json:"object_key"`
	Source    string         `json:"source"`
	Rows      int            `json:"rows"`
	Converted bool           `json:"converted"`
	Imported  bool           `json:"imported"`
}

type DatasetInfo struct {
	Dataset   domain.Dataset `json:"dataset"`
	KeyField  string         `json:"key_field"`
	ObjectKey string         `json:"object_key"`
	Present   bool           `json:"present"`
	Size      int64          `json:"size,omitempty"`
}

type SyncReport struct {
	Folder   string         `json:"folder"`
	Synced   []UploadResult `json:"synced"`
	Skipped  []string       `json:"skipped,omitempty"`
	Duration string         `json:"duration"`
}

type DatasetService struct {
	fetcher     recordstore.Fetcher
	objects     DatasetObjects
	importer    TableImporter
	folder      FolderSource
	driveFolder string
}

func NewDatasetService(fetcher recordstore.Fetcher, objects DatasetObjects) *DatasetService {
	return &DatasetService{fetcher: fetcher, objects: objects}
}

// WithImporter mirrors uploads into database tables.
func (s *DatasetService) WithImporter(importer TableImporter) *DatasetService {
	s.importer = importer
	return s
}

// WithDrive enables syncing from a Drive folder; defaultFolder is used when
// a sync names none.
func (s *DatasetService) WithDrive(folder FolderSource, defaultFolder string) *DatasetService {
	s.folder = folder
	s.driveFolder = defaultFolder
	return s
}

func (s *DatasetService) Fetch(ctx context.Context, d domain.Dataset, key string) ([]domain.Row, error) {
	return s.fetcher.Fetch(ctx, d, key)
}

// Upload stores a dataset file. XLSX workbooks are converted to CSV first.
// With an importer configured the rows are mirrored into the dataset table
// before the object is written.
func (s *DatasetService) Upload(ctx context.Context, d domain.Dataset, filename string, data []byte) (*UploadResult, error) {
	result := &UploadResult{Dataset: d, ObjectKey: s.objects.ObjectKey(d), Source: filename}

	if drive.IsSpreadsheet(filename) {
		converted, err := drive.ConvertXLSXToCSV(data)
		if err != nil {
			return nil, domain.Malformed("xlsx", err.Error())
		}
		data = converted
		result.Converted = true
	}

	rows, err := recordstore.ParseCSV(data)
	if err != nil {
		return nil, domain.Malformed("csv", err.Error())
	}
	result.Rows = len(rows)

	// The table is replaced first so a failed import leaves the stored
	// object untouched.
	if s.importer != nil {
		if err := s.importCSV(ctx, d, data); err != nil {
			return nil, err
		}
		result.Imported = true
	}

	if err := s.objects.Store(ctx, d, data); err != nil {
		return nil, err
	}

	log.Info().
		Str("dataset", d.String()).
		Str("source", filename).
		Int("rows", result.Rows).
		Bool("converted", result.Converted).
		Bool("imported", result.Imported).
		Msg("dataset uploaded")
	return result, nil
}

// Import copies the stored CSV of a dataset into its database table.
func (s *DatasetService) Import(ctx context.Context, d domain.Dataset) (int, error) {
	if s.importer == nil {
		return 0, ErrImportDisabled
	}
	data, err := s.objects.Load(ctx, d)
	if err != nil {
		return 0, err
	}
	_, records, err := recordstore.ReadCSV(data)
	if err != nil {
		return 0, domain.Malformed("csv", err.Error())
	}
	if err := s.importCSV(ctx, d, data); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *DatasetService) importCSV(ctx context.Context, d domain.Dataset, data []byte) error {
	header, records, err := recordstore.ReadCSV(data)
	if err != nil {
		return domain.Malformed("csv", err.Error())
	}
	if err := s.importer.Replace(ctx, d, header, records); err != nil {
		return errors.Wrapf(err, "import %s", d)
	}
	return nil
}

// List reports every known dataset and whether its object exists.
func (s *DatasetService) List(ctx context.Context) ([]DatasetInfo, error) {
	objects, err := s.objects.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list datasets")
	}
	sizes := make(map[string]int64, len(objects))
	for _, o := range objects {
		sizes[o.Key] = o.Size
	}

	out := make([]DatasetInfo, 0)
	for _, d := range domain.Datasets() {
		key := s.objects.ObjectKey(d)
		size, ok := sizes[key]
		out = append(out, DatasetInfo{
			Dataset:   d,
			KeyField:  d.KeyField(),
			ObjectKey: key,
			Present:   ok,
			Size:      size,
		})
	}
	return out, nil
}

// SyncFromDrive pulls the folder's files and uploads those whose name matches
// a dataset file. Unmatched files are skipped.
func (s *DatasetService) SyncFromDrive(ctx context.Context, folder string) (*SyncReport, error) {
	if s.folder == nil {
		return nil, ErrDriveDisabled
	}
	if folder == "" {
		folder = s.driveFolder
	}

	start := time.Now()
	files, err := s.folder.PullFolderCSV(ctx, folder)
	if err != nil {
		return nil, errors.Wrapf(err, "pull drive folder %q", folder)
	}

	report := &SyncReport{Folder: folder, Synced: []UploadResult{}}
	for _, f := range files {
		d, ok := s.datasetForFile(f.Name)
		if !ok {
			report.Skipped = append(report.Skipped, f.SourceName)
			continue
		}
		result, err := s.Upload(ctx, d, f.Name, f.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "sync %s", f.SourceName)
		}
		result.Source = f.SourceName
		result.Converted = f.Name != f.SourceName
		report.Synced = append(report.Synced, *result)
	}
	report.Duration = time.Since(start).String()

	log.Info().
		Str("folder", folder).
		Int("synced", len(report.Synced)).
		Int("skipped", len(report.Skipped)).
		Msg("drive sync completed")
	return report, nil
}

func (s *DatasetService) datasetForFile(name string) (domain.Dataset, bool) {
	for _, d := range domain.Datasets() {
		if strings.EqualFold(path.Base(s.objects.ObjectKey(d)), name) || strings.EqualFold(d.DefaultFile(), name) {
			return d, true
		}
	}
	return "", false
}
