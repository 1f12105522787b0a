package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sdejongh/mediakit/pkg/compare"
	"github.com/sdejongh/mediakit/pkg/logging"
	"github.com/sdejongh/mediakit/pkg/metadata"
	"github.com/sdejongh/mediakit/pkg/models"
	"github.com/sdejongh/mediakit/pkg/output"
	"github.com/sdejongh/mediakit/pkg/storage"
)

// DefaultExtensions are the image and video suffixes cataloged when none are configured
var DefaultExtensions = []string{
	".jpg", ".jpeg", ".png", ".dng", ".cr2", ".tif", ".tiff", ".heic", ".mp4", ".mov",
}

// Options controls a catalog run
type Options struct {
	// Extensions is the allow-list of file suffixes, matched case-insensitively
	Extensions []string
	// DryRun plans the moves without touching the filesystem
	DryRun bool
}

// Mover moves media files into year-month folders
type Mover struct {
	backend    storage.Backend
	resolver   *metadata.Resolver
	comparator compare.Comparator
	formatter  output.Formatter
	logger     logging.Logger
	extensions map[string]bool
	dryRun     bool
}

// NewMover creates a catalog mover. A nil comparator defaults to SHA-256
// comparison; a nil formatter prints nothing.
func NewMover(
	backend storage.Backend,
	resolver *metadata.Resolver,
	comparator compare.Comparator,
	formatter output.Formatter,
	logger logging.Logger,
	opts Options,
) *Mover {
	if comparator == nil {
		comparator = compare.NewHashComparator(0)
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	return &Mover{
		backend:    backend,
		resolver:   resolver,
		comparator: comparator,
		formatter:  output.OrDiscard(formatter),
		logger:     logging.OrNull(logger),
		extensions: extensionSet(exts),
		dryRun:     opts.DryRun,
	}
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return set
}

// Eligible reports whether a file name carries an allow-listed extension
func (m *Mover) Eligible(name string) bool {
	return m.extensions[strings.ToLower(filepath.Ext(name))]
}

// Catalog moves the eligible files directly inside sourceDir into
// targetRoot/YYYY-MM. An existing destination is never overwritten: the file
// stays in place and is counted as skipped. Files without a usable date are
// reported and make the run partial. Filesystem errors abort the run; files
// already moved stay moved, so a later run resumes where this one stopped.
func (m *Mover) Catalog(ctx context.Context, sourceDir, targetRoot string) (*models.CatalogReport, error) {
	report := &models.CatalogReport{
		RunInfo:    models.NewRunInfo("catalog"),
		SourceDir:  sourceDir,
		TargetRoot: targetRoot,
	}
	report.DryRun = m.dryRun

	paths, err := m.scan(ctx, sourceDir)
	if err != nil {
		return m.abort(report, sourceDir, "scan", err)
	}
	report.Scanned = len(paths)

	m.logger.Info(ctx, "Starting catalog", logging.Fields{
		"source":  sourceDir,
		"target":  targetRoot,
		"files":   len(paths),
		"dry_run": m.dryRun,
	})
	m.formatter.Start(nil, "Cataloging", len(paths))

	resolutions, err := m.resolver.ResolveAll(ctx, paths)
	if err != nil {
		return m.abort(report, sourceDir, "resolve", err)
	}

	grouping := Group(resolutions, targetRoot)
	for _, f := range grouping.Failures {
		report.Unresolved = append(report.Unresolved, f.Path)
		report.AddError(f.Path, "resolve", f)
		m.logger.Warn(ctx, "Capture date not resolved", logging.Fields{"path": f.Path, "error": f.Err.Error()})
		m.formatter.Progress(output.Event{Type: output.EventFileError, Path: f.Path, Error: f})
	}

	for _, b := range grouping.Buckets {
		if err := m.placeBucket(ctx, b, report); err != nil {
			return m.abort(report, b.Path, "move", err)
		}
	}

	status := models.StatusSuccess
	if len(report.Unresolved) > 0 {
		status = models.StatusPartial
	}
	report.Finish(status)

	m.logger.Info(ctx, "Catalog completed", logging.Fields{
		"moved":      report.MovedCount,
		"skipped":    report.SkippedCount,
		"unresolved": len(report.Unresolved),
		"duration":   report.Duration.String(),
	})
	m.formatter.Complete(report)
	return report, nil
}

// scan lists eligible top-level files
func (m *Mover) scan(ctx context.Context, sourceDir string) ([]string, error) {
	entries, err := m.backend.List(ctx, sourceDir)
	if err != nil {
		return nil, &models.IOError{Op: "list", Path: sourceDir, Err: err}
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir || !m.Eligible(e.Name) {
			continue
		}
		paths = append(paths, e.Path)
	}
	return paths, nil
}

func (m *Mover) placeBucket(ctx context.Context, b Bucket, report *models.CatalogReport) error {
	m.formatter.Progress(output.Event{Type: output.EventBucket, Target: b.Path, Total: len(b.Files)})

	if !m.dryRun {
		if err := m.backend.MkdirAll(ctx, b.Path); err != nil {
			return &models.IOError{Op: "mkdir", Path: b.Path, Err: err}
		}
	}

	for _, f := range b.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.placeFile(ctx, b, f, report); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mover) placeFile(ctx context.Context, b Bucket, f models.MediaFile, report *models.CatalogReport) error {
	dest := filepath.Join(b.Path, f.Name())

	exists, err := m.backend.Exists(ctx, dest)
	if err != nil {
		return &models.IOError{Op: "stat", Path: dest, Err: err}
	}
	if exists {
		m.skip(ctx, f.Path, dest, report)
		return nil
	}

	if !m.dryRun {
		if err := m.backend.Move(ctx, f.Path, dest, false); err != nil {
			if errors.Is(err, os.ErrExist) {
				m.skip(ctx, f.Path, dest, report)
				return nil
			}
			return &models.IOError{Op: "move", Path: f.Path, Err: err}
		}
	}

	report.MovedCount++
	report.Moves = append(report.Moves, models.CatalogMove{
		Source:      f.Path,
		Destination: dest,
		Bucket:      b.Key,
		DateSource:  f.DateSource,
	})
	m.logger.Debug(ctx, "Moved", logging.Fields{"source": f.Path, "dest": dest, "date_source": string(f.DateSource)})
	m.formatter.Progress(output.Event{Type: output.EventFileMoved, Path: f.Path, Target: dest})
	return nil
}

func (m *Mover) skip(ctx context.Context, source, dest string, report *models.CatalogReport) {
	reason := m.classify(ctx, source, dest)
	report.SkippedCount++
	report.Skips = append(report.Skips, models.CatalogSkip{Source: source, Destination: dest, Reason: reason})

	m.logger.Info(ctx, "Destination exists, skipping", logging.Fields{
		"source": source,
		"dest":   dest,
		"reason": string(reason),
	})
	m.formatter.Progress(output.Event{Type: output.EventFileSkipped, Path: source, Target: dest, Message: string(reason)})
}

// classify tells a re-imported copy from a different file with the same name
func (m *Mover) classify(ctx context.Context, source, dest string) models.SkipReason {
	cmp, err := m.comparator.Compare(ctx, m.backend, m.backend, source, dest)
	if err != nil {
		m.logger.Warn(ctx, "Could not compare with existing destination", logging.Fields{
			"source": source,
			"dest":   dest,
			"error":  err.Error(),
		})
		return models.SkipNameClash
	}
	if cmp.Result == compare.Same {
		return models.SkipIdentical
	}
	return models.SkipNameClash
}

func (m *Mover) abort(report *models.CatalogReport, path, op string, err error) (*models.CatalogReport, error) {
	status := models.StatusFailed
	if errors.Is(err, context.Canceled) {
		status = models.StatusCancelled
	}
	report.AddError(path, op, err)
	report.Finish(status)
	m.formatter.Error(err)
	return report, fmt.Errorf("catalog %s: %w", report.SourceDir, err)
}
