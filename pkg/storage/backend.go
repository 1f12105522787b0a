package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo represents metadata about a file
type FileInfo struct {
	Path         string
	Name         string
	Size         int64
	ModTime      time.Time
	IsDir        bool
	Permissions  uint32
	RelativePath string
}

// Backend is the filesystem surface used by the media commands.
// Relative paths are resolved against the backend root; absolute paths are used as-is.
type Backend interface {
	// List returns the direct children of a directory, sorted by name
	List(ctx context.Context, path string) ([]FileInfo, error)

	// Walk returns every entry below a directory, the directory itself excluded
	Walk(ctx context.Context, path string) ([]FileInfo, error)

	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Move renames a file, copying across filesystems when needed.
	// Without overwrite an existing destination yields an error matching os.ErrExist.
	Move(ctx context.Context, from, to string, overwrite bool) error

	// Delete removes a file or a whole directory tree
	Delete(ctx context.Context, path string) error

	// RemoveDir removes a directory only if it is empty
	RemoveDir(ctx context.Context, path string) error

	// Exists checks if a file or directory exists
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns file metadata
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(ctx context.Context, path string) error

	// Close releases any resources held by the backend
	Close() error
}
