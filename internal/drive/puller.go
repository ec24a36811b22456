package drive

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// FolderFile is a CSV pulled from a Drive folder. Spreadsheets are already
// converted; SourceName keeps the original file name.
type FolderFile struct {
	Name         string
	SourceName   string
	ModifiedTime string
	Data         []byte
}

// Puller downloads the CSV and XLSX files of a folder into memory.
type Puller struct {
	service *Service
}

func NewPuller(s *Service) *Puller {
	return &Puller{service: s}
}

// PullFolderCSV downloads every CSV and XLSX file in the folder at path
// ("" is My Drive). XLSX files are converted using their first sheet.
func (p *Puller) PullFolderCSV(ctx context.Context, path string) ([]FolderFile, error) {
	folderID, err := p.service.FindFolderByPath(ctx, path)
	if err != nil {
		return nil, err
	}

	files, err := p.service.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var out []FolderFile
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}

		var buf bytes.Buffer
		if err := p.service.DownloadFile(ctx, f.ID, &buf); err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", f.Name, err)
		}

		pulled := FolderFile{Name: f.Name, SourceName: f.Name, ModifiedTime: f.ModifiedTime, Data: buf.Bytes()}
		if IsSpreadsheet(f.Name) {
			data, err := ConvertXLSXToCSV(pulled.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to convert %s to csv: %w", f.Name, err)
			}
			pulled.Name = CSVName(f.Name)
			pulled.Data = data
		}
		out = append(out, pulled)
	}
	return out, nil
}
