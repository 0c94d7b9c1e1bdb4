// Package blob abstracts artifact byte storage behind a small Store
// interface with local-filesystem and S3-compatible implementations.
package blob

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewStorageKey mints a date-partitioned object key for a fresh artifact.
func NewStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("artifacts/%d/%02d/%02d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}
