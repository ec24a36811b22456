package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"
)

// GCSClient implements ObjectStorage on a Google Cloud Storage bucket through
// the JSON API, authenticated with a service account key.
type GCSClient struct {
	svc    *gcs.Service
	bucket string
}

func NewGCSClient(ctx context.Context, credentialsJSON, bucket string) (*GCSClient, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket must be provided")
	}
	jwt, err := google.JWTConfigFromJSON([]byte(credentialsJSON), gcs.DevstorageReadWriteScope)
	if err != nil {
		return nil, errors.Wrap(err, "parse gcs credentials")
	}
	svc, err := gcs.NewService(ctx, option.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, errors.Wrap(err, "create gcs service")
	}
	return &GCSClient{svc: svc, bucket: bucket}, nil
}

func (c *GCSClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	results := make([]ObjectInfo, 0)
	err := c.svc.Objects.List(c.bucket).Prefix(prefix).Pages(ctx, func(page *gcs.Objects) error {
		for _, obj := range page.Items {
			results = append(results, ObjectInfo{Key: obj.Name, Size: int64(obj.Size)})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "gcs list failed")
	}
	return results, nil
}

func (c *GCSClient) GetObject(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.svc.Objects.Get(c.bucket, key).Context(ctx).Download()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, notFound(key)
		}
		return nil, errors.Wrapf(err, "gcs get %s", key)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "gcs read %s", key)
	}
	return data, nil
}

func (c *GCSClient) PutObject(ctx context.Context, key string, data []byte) error {
	_, err := c.svc.Objects.Insert(c.bucket, &gcs.Object{Name: key, ContentType: "text/csv"}).
		Media(bytes.NewReader(data)).
		Context(ctx).
		Do()
	if err != nil {
		return errors.Wrapf(err, "gcs put %s", key)
	}
	return nil
}

var _ ObjectStorage = (*GCSClient)(nil)
