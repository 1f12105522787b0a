package transcode

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sdejongh/mediakit/pkg/logging"
	"github.com/sdejongh/mediakit/pkg/manifest"
	"github.com/sdejongh/mediakit/pkg/models"
	"github.com/sdejongh/mediakit/pkg/output"
	"github.com/sdejongh/mediakit/pkg/storage"
)

// CleanerOptions configures a Cleaner
type CleanerOptions struct {
	// TrashDir receives the originals instead of deleting them. Empty means
	// originals are deleted for good.
	TrashDir string
}

// Cleaner removes originals that have been transcoded
type Cleaner struct {
	profile   Profile
	backend   storage.Backend
	formatter output.Formatter
	logger    logging.Logger
	opts      CleanerOptions
}

// NewCleaner creates a cleaner for one profile
func NewCleaner(profile Profile, backend storage.Backend, formatter output.Formatter, logger logging.Logger, opts CleanerOptions) *Cleaner {
	return &Cleaner{
		profile:   profile,
		backend:   backend,
		formatter: output.OrDiscard(formatter),
		logger:    logging.OrNull(logger),
		opts:      opts,
	}
}

// Plan lists the originals of sourceDir that are recorded in the manifest
// and whose output is still on disk. Nothing is removed; the returned report
// is a dry run until passed to Apply.
func (c *Cleaner) Plan(ctx context.Context, sourceDir string) (*models.CleanupReport, error) {
	report := &models.CleanupReport{
		RunInfo:   models.NewRunInfo("transcode cleanup " + string(c.profile.Kind)),
		Kind:      string(c.profile.Kind),
		SourceDir: sourceDir,
		TrashDir:  c.opts.TrashDir,
	}
	report.DryRun = true

	inputs, err := Sources(ctx, c.backend, c.profile, sourceDir)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return report, nil
	}

	m, err := manifest.Open(c.profile.ManifestPath(sourceDir))
	if err != nil {
		var corrupt *models.ManifestCorruptionError
		if !errors.As(err, &corrupt) {
			return nil, err
		}
		// a corrupt manifest proves nothing was transcoded
		c.logger.Warn(ctx, "Manifest is corrupt, nothing to clean", logging.Fields{"path": corrupt.Path})
		return report, nil
	}

	for _, input := range inputs {
		entry, ok := m.Find(input)
		if !ok {
			continue
		}
		exists, err := c.backend.Exists(ctx, entry.File.Output)
		if err != nil {
			return nil, &models.IOError{Op: "stat", Path: entry.File.Output, Err: err}
		}
		if !exists {
			c.logger.Debug(ctx, "Output missing, keeping original", logging.Fields{"input": input, "output": entry.File.Output})
			continue
		}
		info, err := c.backend.Stat(ctx, input)
		if err != nil {
			return nil, &models.IOError{Op: "stat", Path: input, Err: err}
		}
		report.Files = append(report.Files, input)
		report.Bytes += uint64(info.Size)
	}

	c.logger.Info(ctx, "Processed originals found", logging.Fields{
		"dir":   sourceDir,
		"files": len(report.Files),
		"bytes": report.Bytes,
	})
	return report, nil
}

// Apply removes the originals listed by Plan, or moves them into the trash
// folder when one is set. It stops at the first failure.
func (c *Cleaner) Apply(ctx context.Context, report *models.CleanupReport) error {
	report.DryRun = false
	verb := "Deleting"
	if c.opts.TrashDir != "" {
		verb = "Trashing"
		if err := c.backend.MkdirAll(ctx, c.opts.TrashDir); err != nil {
			return c.fail(report, c.opts.TrashDir, &models.IOError{Op: "mkdir", Path: c.opts.TrashDir, Err: err})
		}
	}
	c.formatter.Start(nil, fmt.Sprintf("%s processed %s in %s", verb, c.profile.Kind, report.SourceDir), len(report.Files))

	for _, path := range report.Files {
		if err := ctx.Err(); err != nil {
			return c.fail(report, path, err)
		}
		if err := c.remove(ctx, path); err != nil {
			return c.fail(report, path, err)
		}
		report.Removed++
		c.formatter.Progress(output.Event{Type: output.EventFileRemoved, Path: path, Target: c.opts.TrashDir})
	}

	report.Finish(models.StatusSuccess)
	c.formatter.Complete(report)
	return nil
}

func (c *Cleaner) remove(ctx context.Context, path string) error {
	if c.opts.TrashDir == "" {
		if err := c.backend.Delete(ctx, path); err != nil {
			return &models.IOError{Op: "delete", Path: path, Err: err}
		}
		c.logger.Info(ctx, "Deleted original", logging.Fields{"path": path})
		return nil
	}

	dest := filepath.Join(c.opts.TrashDir, filepath.Base(path))
	if err := c.backend.Move(ctx, path, dest, true); err != nil {
		return &models.IOError{Op: "trash", Path: path, Err: err}
	}
	c.logger.Info(ctx, "Trashed original", logging.Fields{"path": path, "trash": dest})
	return nil
}

func (c *Cleaner) fail(report *models.CleanupReport, path string, err error) error {
	status := models.StatusFailed
	if errors.Is(err, context.Canceled) {
		status = models.StatusCancelled
	}
	op := "delete"
	if c.opts.TrashDir != "" {
		op = "trash"
	}
	report.AddError(path, op, err)
	report.Finish(status)
	c.formatter.Error(err)
	return fmt.Errorf("cleanup %s: %w", report.SourceDir, err)
}
