package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"taskroom/pkg/logger"
)

// BlobRepository stores profile images by key, one object per key.
// Put overwrites; callers delete the prior key before writing a new one
// when the key changes.
type BlobRepository interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type diskBlobRepository struct {
	dir     string
	baseURL string
	log     logger.Logger
}

func NewDiskBlobRepository(dir, baseURL string, log logger.Logger) (BlobRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &diskBlobRepository{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}, nil
}

func (r *diskBlobRepository) Put(_ context.Context, key string, data []byte) (string, error) {
	if key == "" || strings.Contains(key, "/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid blob key: %q", key)
	}

	path := filepath.Join(r.dir, key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		r.log.Error("Failed to write blob", "error", err, "key", key)
		return "", err
	}

	return r.URL(key), nil
}

func (r *diskBlobRepository) Delete(_ context.Context, key string) error {
	if key == "" || strings.Contains(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid blob key: %q", key)
	}

	err := os.Remove(filepath.Join(r.dir, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.log.Error("Failed to delete blob", "error", err, "key", key)
		return err
	}
	return nil
}

func (r *diskBlobRepository) URL(key string) string {
	return r.baseURL + "/" + key
}
