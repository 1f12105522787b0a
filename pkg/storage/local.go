package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sdejongh/mediakit/pkg/ratelimit"
)

// Local is a filesystem-based storage backend
type Local struct {
	rootPath string
	// limiter caps cross-device copies; nil copies at full speed
	limiter *ratelimit.Limiter
}

// NewLocal creates a new local filesystem backend rooted at an existing directory
func NewLocal(rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	return &Local{rootPath: absPath}, nil
}

// SetBandwidthLimit caps the throughput of moves that fall back to copying
func (l *Local) SetBandwidthLimit(limiter *ratelimit.Limiter) {
	l.limiter = limiter
}

// Root returns the absolute root directory
func (l *Local) Root() string {
	return l.rootPath
}

func (l *Local) resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(l.rootPath, path)
}

func (l *Local) fileInfo(fullPath string, info fs.FileInfo) FileInfo {
	rel, err := filepath.Rel(l.rootPath, fullPath)
	if err != nil {
		rel = fullPath
	}
	return FileInfo{
		Path:         fullPath,
		Name:         info.Name(),
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		IsDir:        info.IsDir(),
		Permissions:  uint32(info.Mode().Perm()),
		RelativePath: rel,
	}
}

// List returns the direct children of a directory, sorted by name
func (l *Local) List(ctx context.Context, path string) ([]FileInfo, error) {
	fullPath := l.resolve(path)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", fullPath, err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := e.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", e.Name(), err)
		}
		files = append(files, l.fileInfo(filepath.Join(fullPath, e.Name()), info))
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Walk returns every entry below a directory
func (l *Local) Walk(ctx context.Context, path string) ([]FileInfo, error) {
	fullPath := l.resolve(path)
	var files []FileInfo

	err := filepath.WalkDir(fullPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if p == fullPath {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, l.fileInfo(p, info))
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", fullPath, err)
	}

	return files, nil
}

// Read opens a file for reading
func (l *Local) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	file, err := os.Open(l.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes a file or directory tree
func (l *Local) Delete(ctx context.Context, path string) error {
	if err := os.RemoveAll(l.resolve(path)); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// RemoveDir removes an empty directory
func (l *Local) RemoveDir(ctx context.Context, path string) error {
	fullPath := l.resolve(path)
	info, err := os.Stat(fullPath)
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", fullPath)
	}
	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to remove directory: %w", err)
	}
	return nil
}

// Exists checks if a file or directory exists
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Lstat(l.resolve(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence: %w", err)
}

// Stat returns file metadata
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	fullPath := l.resolve(path)

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	fi := l.fileInfo(fullPath, info)
	return &fi, nil
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, path string) error {
	if err := os.MkdirAll(l.resolve(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}
