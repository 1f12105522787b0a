package compare

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/mediakit/pkg/storage"
)

const (
	// files at least this large get a head hash before the full hash
	partialHashThreshold = 1 * 1024 * 1024
	partialHashSize      = 256 * 1024
)

// HashComparator compares files using SHA-256
type HashComparator struct {
	bufferPool        *sync.Pool
	enablePartialHash bool
}

// NewHashComparator creates a hash comparator; bufferSize below 4 KiB is raised to 32 KiB
func NewHashComparator(bufferSize int) *HashComparator {
	if bufferSize < 4096 {
		bufferSize = 32 * 1024
	}
	return &HashComparator{
		enablePartialHash: true,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

// SetPartialHashEnabled enables or disables the head-hash shortcut
func (c *HashComparator) SetPartialHashEnabled(enabled bool) {
	c.enablePartialHash = enabled
}

// Compare checks sizes first, then SHA-256 digests of both files
func (c *HashComparator) Compare(ctx context.Context, source, dest storage.Backend, sourcePath, destPath string) (*Comparison, error) {
	cmp := &Comparison{SourcePath: sourcePath, DestPath: destPath}

	sourceInfo, err := source.Stat(ctx, sourcePath)
	if err != nil {
		return c.fail(cmp, "failed to stat source file", err)
	}
	destInfo, err := dest.Stat(ctx, destPath)
	if err != nil {
		return c.fail(cmp, "failed to stat destination file", err)
	}

	if sourceInfo.Size != destInfo.Size {
		cmp.Result = Different
		cmp.Reason = "file sizes differ"
		return cmp, nil
	}

	if c.enablePartialHash && sourceInfo.Size >= partialHashThreshold {
		srcHead, dstHead, err := c.hashPair(ctx, source, dest, sourcePath, destPath, partialHashSize)
		// a failed head hash falls through to the full hash
		if err == nil && srcHead != dstHead {
			cmp.Result = Different
			cmp.Reason = "file partial hashes differ"
			return cmp, nil
		}
	}

	srcHash, dstHash, err := c.hashPair(ctx, source, dest, sourcePath, destPath, -1)
	if err != nil {
		return c.fail(cmp, "failed to compute hash", err)
	}

	if srcHash != dstHash {
		cmp.Result = Different
		cmp.Reason = "file hashes differ"
		return cmp, nil
	}

	cmp.Result = Same
	cmp.Reason = "file hashes match"
	return cmp, nil
}

func (c *HashComparator) fail(cmp *Comparison, reason string, err error) (*Comparison, error) {
	cmp.Result = Error
	cmp.Reason = reason
	cmp.Error = err
	return cmp, fmt.Errorf("%s: %w", reason, err)
}

// hashPair hashes both files concurrently; limit < 0 hashes everything
func (c *HashComparator) hashPair(ctx context.Context, source, dest storage.Backend, sourcePath, destPath string, limit int64) (string, string, error) {
	var srcHash, dstHash string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		srcHash, err = c.computeHash(gctx, source, sourcePath, limit)
		return err
	})
	g.Go(func() error {
		var err error
		dstHash, err = c.computeHash(gctx, dest, destPath, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return srcHash, dstHash, nil
}

func (c *HashComparator) computeHash(ctx context.Context, backend storage.Backend, path string, limit int64) (string, error) {
	reader, err := backend.Read(ctx, path)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	var r io.Reader = reader
	if limit >= 0 {
		r = io.LimitReader(reader, limit)
	}

	bufPtr := c.bufferPool.Get().(*[]byte)
	defer c.bufferPool.Put(bufPtr)
	buffer := *bufPtr

	hasher := sha256.New()
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := r.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Name returns the comparator name
func (c *HashComparator) Name() string {
	return "hash"
}
