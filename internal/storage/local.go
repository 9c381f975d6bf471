package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// LocalStore keeps uploaded blobs on the local filesystem under a base
// directory. Writes are atomic: content lands in a temp file and is renamed
// into place only once fully flushed.
type LocalStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewLocalStore creates the base directory if needed.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	log.Info().Str("path", basePath).Msg("local blob store initialized")
	return &LocalStore{basePath: basePath}, nil
}

func (s *LocalStore) resolve(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

// Store writes content under key, returning the byte count.
func (s *LocalStore) Store(ctx context.Context, key string, content io.Reader, contentType string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fullPath := s.resolve(key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := fmt.Sprintf("%s.tmp.%d", fullPath, time.Now().UnixNano())
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		tempFile.Close()
		os.Remove(tempPath)
	}()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tempFile, hasher), content)
	if err != nil {
		return 0, fmt.Errorf("failed to write content: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync temporary file: %w", err)
	}
	tempFile.Close()

	if err := os.Rename(tempPath, fullPath); err != nil {
		return 0, fmt.Errorf("failed to move file into place: %w", err)
	}

	log.Info().
		Str("key", key).
		Str("content_type", contentType).
		Int64("bytes", written).
		Str("checksum", hex.EncodeToString(hasher.Sum(nil))).
		Msg("blob stored")
	return written, nil
}

// Retrieve opens the blob stored under key.
func (s *LocalStore) Retrieve(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := os.Open(s.resolve(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob not found: %s", key)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return file, nil
}

// Delete removes the blob under key, tolerating already-deleted keys.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.resolve(key)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	log.Info().Str("key", key).Msg("blob deleted")
	return nil
}

// Exists reports whether a blob is stored under key.
func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(s.resolve(key)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat blob: %w", err)
	}
	return true, nil
}

// Size returns the stored blob length.
func (s *LocalStore) Size(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := os.Stat(s.resolve(key))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("blob not found: %s", key)
		}
		return 0, fmt.Errorf("failed to stat blob: %w", err)
	}
	return info.Size(), nil
}
