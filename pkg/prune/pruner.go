// Package prune removes empty folders below a root
package prune

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/sdejongh/mediakit/pkg/logging"
	"github.com/sdejongh/mediakit/pkg/models"
	"github.com/sdejongh/mediakit/pkg/output"
	"github.com/sdejongh/mediakit/pkg/storage"
)

// Pruner removes folders that are empty once their own empty subfolders are gone
type Pruner struct {
	backend   storage.Backend
	formatter output.Formatter
	logger    logging.Logger
}

// NewPruner creates a pruner
func NewPruner(backend storage.Backend, formatter output.Formatter, logger logging.Logger) *Pruner {
	return &Pruner{
		backend:   backend,
		formatter: output.OrDiscard(formatter),
		logger:    logging.OrNull(logger),
	}
}

// Prune removes empty folders below root, deepest first. The root itself is
// never removed. With dryRun nothing is touched and the report lists the
// folders that would go.
func (p *Pruner) Prune(ctx context.Context, root string, dryRun bool) (*models.PruneReport, error) {
	report := &models.PruneReport{
		RunInfo: models.NewRunInfo("prune"),
		Root:    root,
	}
	report.DryRun = dryRun

	entries, err := p.backend.Walk(ctx, root)
	if err != nil {
		return p.fail(report, root, "walk", &models.IOError{Op: "walk", Path: root, Err: err})
	}

	// children counts the entries left in each folder
	children := make(map[string]int)
	var dirs []string
	for _, e := range entries {
		children[filepath.Dir(e.Path)]++
		if e.IsDir {
			dirs = append(dirs, e.Path)
		}
	}
	// a path sorts after its parent, so reverse order visits children first
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))

	p.formatter.Start(nil, "Pruning empty folders in "+root, len(dirs))

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return p.fail(report, dir, "remove", err)
		}
		if children[dir] > 0 {
			continue
		}
		if !dryRun {
			if err := p.backend.RemoveDir(ctx, dir); err != nil {
				return p.fail(report, dir, "remove", &models.IOError{Op: "remove", Path: dir, Err: err})
			}
		}
		children[filepath.Dir(dir)]--
		report.Removed = append(report.Removed, dir)
		p.logger.Debug(ctx, "Empty folder", logging.Fields{"path": dir, "dry_run": dryRun})
		p.formatter.Progress(output.Event{Type: output.EventFileRemoved, Path: dir})
	}

	p.logger.Info(ctx, "Prune completed", logging.Fields{
		"root":    root,
		"folders": len(dirs),
		"removed": len(report.Removed),
		"dry_run": dryRun,
	})
	report.Finish(models.StatusSuccess)
	p.formatter.Complete(report)
	return report, nil
}

func (p *Pruner) fail(report *models.PruneReport, path, op string, err error) (*models.PruneReport, error) {
	status := models.StatusFailed
	if errors.Is(err, context.Canceled) {
		status = models.StatusCancelled
	}
	report.AddError(path, op, err)
	report.Finish(status)
	p.formatter.Error(err)
	return report, fmt.Errorf("prune %s: %w", path, err)
}
