// Package snapshot saves and restores zstd-compressed vector index snapshots to a file or an
// S3-compatible bucket.
package snapshot

import (
	"context"
	"fmt"
	"io"
)

// Store holds a single snapshot blob. Get returns models.ErrNotFound when no snapshot exists.
type Store interface {
	Put(ctx context.Context, r io.Reader) error
	Get(ctx context.Context) (io.ReadCloser, error)
	// Location describes where the snapshot lives, for logs.
	Location() string
}

// Backend names accepted by New.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendMinio = "minio"
)

// Config selects and configures a snapshot backend.
type Config struct {
	Backend   string
	Path      string
	Endpoint  string
	Bucket    string
	Object    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// New builds the configured store. It returns nil, nil for the "none" backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendNone, "":
		return nil, nil
	case BackendFile:
		s, err := NewFileStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMinio:
		s, err := NewMinioStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend: %s (supported: none, file, minio)", cfg.Backend)
	}
}
