package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Ensure LocalFileStore implements FileStore
var _ FileStore = (*LocalFileStore)(nil)

// LocalFileStore implements FileStore on a local directory tree. Public URLs
// are derived by joining the configured base URL with the key.
type LocalFileStore struct {
	root    string
	baseURL string
	logger  *zap.Logger
}

// LocalFileStoreOption is a functional option for configuring LocalFileStore
type LocalFileStoreOption func(*LocalFileStore)

// WithLogger sets a custom logger for LocalFileStore
func WithLogger(logger *zap.Logger) LocalFileStoreOption {
	return func(s *LocalFileStore) {
		s.logger = logger
	}
}

// NewLocalFileStore creates a file store rooted at root. The root directory
// is created if missing.
func NewLocalFileStore(root, baseURL string, opts ...LocalFileStoreOption) (*LocalFileStore, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}

	s := &LocalFileStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Write stores content under key, creating parent directories as needed.
func (s *LocalFileStore) Write(ctx context.Context, key string, r io.Reader) error {
	if err := validateKey(key); err != nil {
		return err
	}
	dest := s.AbsolutePath(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to close %s: %w", key, err)
	}

	s.logger.Debug("stored file", zap.String("key", key), zap.String("path", dest))
	return nil
}

// Delete removes the file under key. Missing files are ignored.
func (s *LocalFileStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	err := os.Remove(s.AbsolutePath(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Exists reports whether a file is stored under key.
func (s *LocalFileStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	_, err := os.Stat(s.AbsolutePath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AbsolutePath resolves a key to a path under the storage root.
func (s *LocalFileStore) AbsolutePath(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// URL derives the public URL for a stored key.
func (s *LocalFileStore) URL(key string) string {
	return s.baseURL + "/" + key
}

// validateKey rejects empty keys and path traversal outside the root.
func validateKey(key string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	cleaned := path.Clean(key)
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("invalid storage key: %s", key)
	}
	return nil
}
