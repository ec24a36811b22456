package storage

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/andresuchdata/ecoagent/backend-go/internal/drive"
	"github.com/pkg/errors"
)

// DriveClient maps object keys onto a Google Drive folder tree rooted at root.
// "input/sales_data.csv" resolves to the file sales_data.csv in <root>/input.
type DriveClient struct {
	svc  *drive.Service
	root string
}

func NewDriveClient(svc *drive.Service, root string) *DriveClient {
	return &DriveClient{svc: svc, root: strings.Trim(root, "/")}
}

func (c *DriveClient) folder(ctx context.Context, dir string) (string, error) {
	return c.svc.FindFolderByPath(ctx, strings.Trim(path.Join(c.root, dir), "/"))
}

func (c *DriveClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	folderID, err := c.folder(ctx, prefix)
	if err != nil {
		if errors.Is(err, drive.ErrNotFound) {
			return []ObjectInfo{}, nil
		}
		return nil, errors.Wrap(err, "drive list failed")
	}
	files, err := c.svc.ListFiles(ctx, folderID)
	if err != nil {
		return nil, errors.Wrap(err, "drive list failed")
	}
	results := make([]ObjectInfo, 0, len(files))
	for _, f := range files {
		results = append(results, ObjectInfo{Key: Key(prefix, f.Name), Size: f.Size})
	}
	return results, nil
}

func (c *DriveClient) GetObject(ctx context.Context, key string) ([]byte, error) {
	dir, name := path.Split(key)
	folderID, err := c.folder(ctx, dir)
	if err != nil {
		if errors.Is(err, drive.ErrNotFound) {
			return nil, notFound(key)
		}
		return nil, errors.Wrapf(err, "drive get %s", key)
	}
	file, err := c.svc.FindFile(ctx, folderID, name)
	if err != nil {
		if errors.Is(err, drive.ErrNotFound) {
			return nil, notFound(key)
		}
		return nil, errors.Wrapf(err, "drive get %s", key)
	}

	var buf bytes.Buffer
	if err := c.svc.DownloadFile(ctx, file.ID, &buf); err != nil {
		if errors.Is(err, drive.ErrNotFound) {
			return nil, notFound(key)
		}
		return nil, errors.Wrapf(err, "drive get %s", key)
	}
	return buf.Bytes(), nil
}

func (c *DriveClient) PutObject(ctx context.Context, key string, data []byte) error {
	dir, name := path.Split(key)
	folderID, err := c.folder(ctx, dir)
	if err != nil {
		return errors.Wrapf(err, "drive put %s", key)
	}
	if err := c.svc.UploadFile(ctx, folderID, name, bytes.NewReader(data)); err != nil {
		return errors.Wrapf(err, "drive put %s", key)
	}
	return nil
}

var _ ObjectStorage = (*DriveClient)(nil)
