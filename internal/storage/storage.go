package storage

import (
	"context"
	"io"
)

// BlobStore persists uploaded audio and generated transcripts for the dev
// server. Keys are opaque to callers; the presign layer mints them and the
// queue-job endpoint references them.
type BlobStore interface {
	// Store saves content under key and returns the number of bytes written.
	Store(ctx context.Context, key string, content io.Reader, contentType string) (int64, error)

	// Retrieve opens the content stored under key.
	Retrieve(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the content under key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error

	// Exists reports whether content is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Size returns the stored content length in bytes.
	Size(ctx context.Context, key string) (int64, error)
}
