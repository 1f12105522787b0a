package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sdejongh/mediakit/pkg/ratelimit"
)

// replaced in tests to simulate cross-device renames
var renameFunc = os.Rename

// Move renames from to to. A rename that fails with EXDEV falls back to
// copy then remove; the copy lands under a temp name first so a partial file
// is never visible at the destination.
func (l *Local) Move(ctx context.Context, from, to string, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src := l.resolve(from)
	dst := l.resolve(to)

	if !overwrite {
		if _, err := os.Lstat(dst); err == nil {
			return fmt.Errorf("move %s: %s: %w", src, dst, os.ErrExist)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to check destination: %w", err)
		}
	}

	err := renameFunc(src, dst)
	if err == nil {
		return nil
	}
	if !isEXDEV(err) {
		return fmt.Errorf("failed to move %s: %w", src, err)
	}

	if err := copyFile(ctx, src, dst, l.limiter); err != nil {
		return fmt.Errorf("failed to copy %s across devices: %w", src, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove %s after copy: %w", src, err)
	}
	return nil
}

func copyFile(ctx context.Context, src, dst string, limiter *ratelimit.Limiter) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("cannot copy directory %s", src)
	}

	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	if _, err := io.Copy(tmp, limiter.Reader(ctx, &ctxReader{ctx: ctx, r: in})); err != nil {
		return err
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chtimes(tmpName, info.ModTime(), info.ModTime()); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}

// ctxReader stops a long copy when the context is cancelled
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
