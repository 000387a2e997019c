package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// GCSStore keeps images as objects in a Google Cloud Storage bucket.
// Credentials come from Application Default Credentials.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: client.Bucket(bucket), name: bucket}, nil
}

func (s *GCSStore) Put(ctx context.Context, key, contentType string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if err := commitObject(w, cancel, r); err != nil {
		return fmt.Errorf("upload gs://%s/%s: %w", s.name, key, err)
	}
	return nil
}

// commitObject copies r into w and closes it. On a copy failure abort runs
// before Close, so the writer's context is cancelled and no partial object
// is finalized in the bucket.
func commitObject(w io.WriteCloser, abort context.CancelFunc, r io.Reader) error {
	if _, err := io.Copy(w, r); err != nil {
		abort()
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *GCSStore) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	rc, err := s.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("open GCS object reader: %w", err)
	}
	ct := rc.Attrs.ContentType
	if ct == "" {
		ct = ContentTypeForKey(key)
	}
	return rc, ct, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete GCS object: %w", err)
	}
	return nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
