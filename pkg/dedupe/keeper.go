// Package dedupe tidies an import folder of phone photos shot in RAW+JPEG:
// JPEGs that have a DNG sibling and files the phone marked as trashed are
// moved out of the way.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sdejongh/mediakit/pkg/logging"
	"github.com/sdejongh/mediakit/pkg/models"
	"github.com/sdejongh/mediakit/pkg/output"
	"github.com/sdejongh/mediakit/pkg/storage"
)

const (
	// KeepFile is never listed, moved or purged
	KeepFile = ".gitignore"
	// TrashedPrefix marks files Android keeps in its trash
	TrashedPrefix = ".trashed"
)

// Options configures a keep-raw run
type Options struct {
	DuplicatesDir string
	TrashedDir    string
	// Purge empties both folders after the moves
	Purge bool
}

// Keeper moves redundant JPEGs and trashed files out of an import folder
type Keeper struct {
	backend   storage.Backend
	formatter output.Formatter
	logger    logging.Logger
	opts      Options
}

// NewKeeper creates a keeper
func NewKeeper(backend storage.Backend, formatter output.Formatter, logger logging.Logger, opts Options) *Keeper {
	return &Keeper{
		backend:   backend,
		formatter: output.OrDiscard(formatter),
		logger:    logging.OrNull(logger),
		opts:      opts,
	}
}

// RawDuplicates returns the .jpg names that have a .dng or .DNG sibling
func RawDuplicates(names []string) []string {
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	var dups []string
	for _, n := range names {
		if strings.HasPrefix(n, TrashedPrefix) || !strings.EqualFold(filepath.Ext(n), ".jpg") {
			continue
		}
		stem := strings.TrimSuffix(n, filepath.Ext(n))
		if present[stem+".dng"] || present[stem+".DNG"] {
			dups = append(dups, n)
		}
	}
	return dups
}

// Trashed returns the names carrying the Android trash prefix
func Trashed(names []string) []string {
	var out []string
	for _, n := range names {
		if strings.HasPrefix(n, TrashedPrefix) {
			out = append(out, n)
		}
	}
	return out
}

// Run moves JPEG duplicates and trashed files out of imagesDir.
// Destinations are overwritten.
func (k *Keeper) Run(ctx context.Context, imagesDir string) (*models.DedupeReport, error) {
	report := &models.DedupeReport{
		RunInfo:   models.NewRunInfo("keep-raw"),
		ImagesDir: imagesDir,
	}

	names, err := k.fileNames(ctx, imagesDir)
	if err != nil {
		return k.fail(report, imagesDir, "list", err)
	}

	dups := RawDuplicates(names)
	trashed := Trashed(names)
	k.logger.Info(ctx, "Scanned import folder", logging.Fields{
		"dir":        imagesDir,
		"files":      len(names),
		"duplicates": len(dups),
		"trashed":    len(trashed),
	})
	k.formatter.Start(nil, "Keeping RAW files", len(dups)+len(trashed))

	for _, set := range []struct {
		names []string
		dir   string
		into  *[]string
	}{
		{dups, k.opts.DuplicatesDir, &report.Duplicates},
		{trashed, k.opts.TrashedDir, &report.Trashed},
	} {
		if len(set.names) == 0 {
			continue
		}
		if set.dir == "" {
			return k.fail(report, imagesDir, "move", errors.New("destination folder not configured"))
		}
		if err := k.backend.MkdirAll(ctx, set.dir); err != nil {
			return k.fail(report, set.dir, "mkdir", &models.IOError{Op: "mkdir", Path: set.dir, Err: err})
		}
		for _, name := range set.names {
			if err := ctx.Err(); err != nil {
				return k.fail(report, name, "move", err)
			}
			src := filepath.Join(imagesDir, name)
			dest := filepath.Join(set.dir, name)
			if err := k.backend.Move(ctx, src, dest, true); err != nil {
				return k.fail(report, src, "move", &models.IOError{Op: "move", Path: src, Err: err})
			}
			*set.into = append(*set.into, src)
			k.logger.Debug(ctx, "Moved", logging.Fields{"source": src, "dest": dest})
			k.formatter.Progress(output.Event{Type: output.EventFileMoved, Path: src, Target: dest})
		}
	}

	if k.opts.Purge {
		for _, dir := range []string{k.opts.DuplicatesDir, k.opts.TrashedDir} {
			if dir == "" {
				continue
			}
			n, err := k.Purge(ctx, dir)
			report.Purged += n
			if err != nil {
				return k.fail(report, dir, "purge", err)
			}
		}
	}

	report.Finish(models.StatusSuccess)
	k.formatter.Complete(report)
	return report, nil
}

// Purge deletes everything in dir except KeepFile and returns how many
// entries were removed. A missing dir is empty.
func (k *Keeper) Purge(ctx context.Context, dir string) (int, error) {
	exists, err := k.backend.Exists(ctx, dir)
	if err != nil || !exists {
		return 0, err
	}
	entries, err := k.backend.List(ctx, dir)
	if err != nil {
		return 0, &models.IOError{Op: "list", Path: dir, Err: err}
	}

	removed := 0
	for _, e := range entries {
		if e.Name == KeepFile {
			continue
		}
		if err := k.backend.Delete(ctx, e.Path); err != nil {
			return removed, &models.IOError{Op: "delete", Path: e.Path, Err: err}
		}
		removed++
	}
	k.logger.Info(ctx, "Purged folder", logging.Fields{"dir": dir, "removed": removed})
	return removed, nil
}

func (k *Keeper) fileNames(ctx context.Context, dir string) ([]string, error) {
	entries, err := k.backend.List(ctx, dir)
	if err != nil {
		return nil, &models.IOError{Op: "list", Path: dir, Err: err}
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir && e.Name != KeepFile {
			names = append(names, e.Name)
		}
	}
	return names, nil
}

func (k *Keeper) fail(report *models.DedupeReport, path, op string, err error) (*models.DedupeReport, error) {
	status := models.StatusFailed
	if errors.Is(err, context.Canceled) {
		status = models.StatusCancelled
	}
	report.AddError(path, op, err)
	report.Finish(status)
	k.formatter.Error(err)
	return report, fmt.Errorf("keep-raw %s: %w", path, err)
}
