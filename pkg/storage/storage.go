package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/feichai0017/docfiler/config"
	"github.com/feichai0017/docfiler/pkg/logger"
	"github.com/feichai0017/docfiler/pkg/storage/local"
	"github.com/feichai0017/docfiler/pkg/storage/minio"
	"github.com/feichai0017/docfiler/pkg/storage/s3"
)

// StorageType selects a backend.
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Storage holds uploaded documents, analysis results and prompt transcripts
// under slash-separated keys.
type Storage interface {
	// Store writes reader under key and returns the stored key.
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// CleanupBefore removes every object last modified before threshold.
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// NewStorage builds the backend named by c.Type.
func NewStorage(ctx context.Context, c *config.StorageConfig, log logger.Logger) (Storage, error) {
	switch StorageType(c.Type) {
	case StorageTypeLocal, "":
		return local.NewLocalStorage(c.LocalDir, log)
	case StorageTypeS3:
		return s3.NewS3Storage(ctx, &c.S3, log)
	case StorageTypeMinio:
		return minio.NewMinioStorage(ctx, &c.Minio, log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.Type)
	}
}
