// Package storage provides file storage implementations for uploaded assets.
package storage

import (
	"context"
	"io"
)

// FileStore abstracts durable storage for uploaded originals, thumbnails and
// avatars. Keys are relative, slash-separated paths such as
// "images/cat_1700000000.jpg".
type FileStore interface {
	// Write stores the content under key, creating parent directories as
	// needed and replacing any existing file.
	Write(ctx context.Context, key string, r io.Reader) error

	// Delete removes the file under key. Deleting a missing file is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a file is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// AbsolutePath resolves a key to a local filesystem path for direct
	// reads (decoding, probing).
	AbsolutePath(key string) string

	// URL derives the public URL for a stored key.
	URL(key string) string
}
