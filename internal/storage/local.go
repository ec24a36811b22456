package storage

import (
	"context"
	"io/fs"
	"os"

	"github.com/chartmuseum/storage"
	"github.com/pkg/errors"
)

// LocalClient implements ObjectStorage on a directory, using chartmuseum's
// filesystem backend so it behaves like the remote ones.
type LocalClient struct {
	backend storage.Backend
	root    string
}

func NewLocalClient(root string) (*LocalClient, error) {
	if root == "" {
		return nil, errors.New("local storage directory must be provided")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create storage dir %s", root)
	}
	return &LocalClient{
		backend: storage.NewLocalFilesystemBackend(root),
		root:    root,
	}, nil
}

func (c *LocalClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	return listBackend(c.backend, "local", prefix)
}

func (c *LocalClient) GetObject(ctx context.Context, key string) ([]byte, error) {
	object, err := c.backend.GetObject(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(key)
		}
		return nil, errors.Wrapf(err, "local get %s", key)
	}
	return object.Content, nil
}

func (c *LocalClient) PutObject(ctx context.Context, key string, data []byte) error {
	if err := c.backend.PutObject(key, data); err != nil {
		return errors.Wrapf(err, "local put %s", key)
	}
	return nil
}

var _ ObjectStorage = (*LocalClient)(nil)
