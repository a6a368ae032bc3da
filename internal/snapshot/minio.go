package snapshot

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hyperjump/bookworm/internal/models"
)

// MinioStore keeps the snapshot as one object in a MinIO or S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	object string
}

// NewMinioStore connects to cfg.Endpoint and creates the bucket if it does not exist.
func NewMinioStore(ctx context.Context, cfg Config) (*MinioStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("snapshot endpoint and bucket are required")
	}
	object := cfg.Object
	if object == "" {
		object = "vectors.snapshot.zst"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, models.Upstream("snapshot store", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, models.Upstream("snapshot store", fmt.Errorf("make bucket %s: %w", cfg.Bucket, err))
		}
	}
	return NewMinioStoreWithClient(client, cfg.Bucket, object), nil
}

// NewMinioStoreWithClient wraps an existing client.
func NewMinioStoreWithClient(client *minio.Client, bucket, object string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket, object: object}
}

// Put uploads r as the snapshot object.
func (s *MinioStore) Put(ctx context.Context, r io.Reader) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.object, r, -1, minio.PutObjectOptions{
		ContentType: "application/zstd",
	})
	if err != nil {
		return models.Upstream("snapshot store", err)
	}
	return nil
}

// Get returns a reader for the snapshot object.
func (s *MinioStore) Get(ctx context.Context) (io.ReadCloser, error) {
	if _, err := s.client.StatObject(ctx, s.bucket, s.object, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("snapshot %s: %w", s.Location(), models.ErrNotFound)
		}
		return nil, models.Upstream("snapshot store", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, models.Upstream("snapshot store", err)
	}
	return obj, nil
}

// Location returns bucket/object.
func (s *MinioStore) Location() string {
	return s.bucket + "/" + s.object
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
