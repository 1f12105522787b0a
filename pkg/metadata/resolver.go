package metadata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/mediakit/internal/platform"
	"github.com/sdejongh/mediakit/pkg/logging"
	"github.com/sdejongh/mediakit/pkg/models"
)

// DefaultChunkSize is the number of files handed to one reader invocation
const DefaultChunkSize = 50

// ResolverConfig bounds the metadata fan-out
type ResolverConfig struct {
	// Workers is the number of reader invocations allowed in flight
	Workers int
	// ChunkSize is the number of files per invocation
	ChunkSize int
}

// Resolution is the outcome for one file. Err is a *models.DateResolutionError
// when neither metadata nor the filesystem gave a valid date.
type Resolution struct {
	File models.MediaFile
	Err  error
}

// Resolver turns file paths into MediaFiles with a capture date
type Resolver struct {
	reader    Reader
	logger    logging.Logger
	workers   int
	chunkSize int

	// stat and creationTime are swapped in tests
	stat         func(string) (os.FileInfo, error)
	creationTime func(os.FileInfo) time.Time
}

// NewResolver creates a resolver. A nil reader resolves from the filesystem only.
func NewResolver(reader Reader, logger logging.Logger, cfg ResolverConfig) *Resolver {
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = DefaultChunkSize
	}
	return &Resolver{
		reader:       reader,
		logger:       logging.OrNull(logger),
		workers:      cfg.Workers,
		chunkSize:    cfg.ChunkSize,
		stat:         os.Stat,
		creationTime: platform.CreationTime,
	}
}

// Resolve determines the capture date of one file
func (r *Resolver) Resolve(ctx context.Context, path string) (Resolution, error) {
	res, err := r.ResolveAll(ctx, []string{path})
	if err != nil {
		return Resolution{}, err
	}
	return res[0], nil
}

// ResolveAll resolves every path and returns results in input order.
// Per-file failures are carried in Resolution.Err; the returned error is only
// set when ctx is cancelled.
func (r *Resolver) ResolveAll(ctx context.Context, paths []string) ([]Resolution, error) {
	results := make([]Resolution, len(paths))
	if len(paths) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for start := 0; start < len(paths); start += r.chunkSize {
		end := min(start+r.chunkSize, len(paths))
		g.Go(func() error {
			return r.resolveChunk(gctx, paths[start:end], results[start:end])
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// resolveChunk fills out; each chunk owns its own slice window
func (r *Resolver) resolveChunk(ctx context.Context, paths []string, out []Resolution) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var metas []Metadata
	if r.reader != nil {
		var err error
		metas, err = r.reader.Read(ctx, paths)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn(ctx, "metadata extraction failed, using filesystem dates", logging.Fields{
				"reader": r.reader.Name(),
				"files":  len(paths),
				"error":  err.Error(),
			})
			metas = nil
		} else if len(metas) != len(paths) {
			r.logger.Warn(ctx, "metadata reader returned a short batch, using filesystem dates", logging.Fields{
				"reader": r.reader.Name(),
				"want":   len(paths),
				"got":    len(metas),
			})
			metas = nil
		}
	}

	for i, p := range paths {
		var md *Metadata
		if metas != nil {
			md = &metas[i]
		}
		out[i] = r.resolveOne(ctx, p, md)
	}
	return nil
}

func (r *Resolver) resolveOne(ctx context.Context, path string, md *Metadata) Resolution {
	file := models.MediaFile{Path: path}

	info, err := r.stat(path)
	if err != nil {
		return Resolution{File: file, Err: &models.DateResolutionError{Path: path, Err: err}}
	}
	file.Size = info.Size()
	file.ModTime = info.ModTime()

	if md != nil {
		if md.Err != nil {
			r.logger.Debug(ctx, "no readable metadata", logging.Fields{"path": path, "error": md.Err.Error()})
		} else if t, src, ok := md.CaptureDate(); ok {
			file.CaptureDate = t
			file.DateSource = src
			return Resolution{File: file}
		}
	}

	fsTime := r.creationTime(info)
	if !ValidTimestamp(fsTime) {
		cause := ErrNoTimestamp
		if md != nil && md.Err != nil {
			cause = errors.Join(md.Err, fmt.Errorf("invalid filesystem time %v", fsTime))
		}
		return Resolution{File: file, Err: &models.DateResolutionError{Path: path, Err: cause}}
	}

	file.CaptureDate = fsTime
	file.DateSource = models.DateFilesystem
	return Resolution{File: file}
}
