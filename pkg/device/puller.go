package device

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/sdejongh/mediakit/pkg/logging"
	"github.com/sdejongh/mediakit/pkg/models"
	"github.com/sdejongh/mediakit/pkg/output"
	"github.com/sdejongh/mediakit/pkg/storage"
)

// DefaultSourceDirs are the camera folders pulled when none are configured
var DefaultSourceDirs = []string{
	"/sdcard/DCIM/Camera",
	"/sdcard/DCIM/OpenCamera",
	"/sdcard/Pictures/Raw",
}

// Puller copies remote folders of one device into a local import folder
type Puller struct {
	device    Device
	runner    Runner
	backend   storage.Backend
	formatter output.Formatter
	logger    logging.Logger
}

// NewPuller creates a puller for a device
func NewPuller(device Device, runner Runner, backend storage.Backend, formatter output.Formatter, logger logging.Logger) *Puller {
	return &Puller{
		device:    device,
		runner:    runner,
		backend:   backend,
		formatter: output.OrDiscard(formatter),
		logger:    logging.OrNull(logger),
	}
}

// Pull transfers each remote dir into target and flattens it so the files
// land directly in target. Folders missing on the device are skipped.
// Local files with the same name are overwritten.
func (p *Puller) Pull(ctx context.Context, dirs []string, target string) (*models.PullReport, error) {
	report := &models.PullReport{
		RunInfo:   models.NewRunInfo("pull"),
		Device:    p.device.Name,
		Serial:    p.device.Serial,
		TargetDir: target,
	}

	if err := p.backend.MkdirAll(ctx, target); err != nil {
		return p.fail(report, target, "mkdir", &models.IOError{Op: "mkdir", Path: target, Err: err})
	}

	p.logger.Info(ctx, "Pulling from device", logging.Fields{
		"device": p.device.Name,
		"serial": p.device.Serial,
		"dirs":   len(dirs),
		"target": target,
	})
	p.formatter.Start(nil, fmt.Sprintf("Pulling from %s", p.device.Name), len(dirs))

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return p.fail(report, dir, "pull", err)
		}

		if _, err := p.runner.Run(ctx, "shell", "ls", shellQuote(dir)); err != nil {
			if ctx.Err() != nil {
				return p.fail(report, dir, "pull", ctx.Err())
			}
			p.logger.Warn(ctx, "Folder not found on device", logging.Fields{"dir": dir, "error": err.Error()})
			report.Dirs = append(report.Dirs, models.PulledDir{Remote: dir, Missing: true})
			p.formatter.Progress(output.Event{Type: output.EventFileSkipped, Path: dir, Message: dir + " not found on device"})
			continue
		}

		if _, err := p.runner.Run(ctx, "pull", dir, target); err != nil {
			return p.fail(report, dir, "pull", err)
		}

		n, err := p.flatten(ctx, filepath.Join(target, path.Base(dir)), target)
		report.Dirs = append(report.Dirs, models.PulledDir{Remote: dir, Files: n})
		if err != nil {
			return p.fail(report, dir, "flatten", err)
		}

		p.logger.Info(ctx, "Pulled folder", logging.Fields{"dir": dir, "files": n})
		p.formatter.Progress(output.Event{Type: output.EventBucket, Target: dir, Total: n})
	}

	report.Finish(models.StatusSuccess)
	p.formatter.Complete(report)
	return report, nil
}

// Remove deletes on the device every folder the report pulled. Missing
// folders are left alone.
func (p *Puller) Remove(ctx context.Context, report *models.PullReport) error {
	for i := range report.Dirs {
		d := &report.Dirs[i]
		if d.Missing || d.Removed {
			continue
		}
		if _, err := p.runner.Run(ctx, "shell", "rm", "-rf", shellQuote(d.Remote)); err != nil {
			report.AddError(d.Remote, "remove", err)
			return fmt.Errorf("remove %s: %w", d.Remote, err)
		}
		d.Removed = true
		p.logger.Info(ctx, "Removed folder from device", logging.Fields{"dir": d.Remote, "device": p.device.Name})
		p.formatter.Progress(output.Event{Type: output.EventFileRemoved, Path: d.Remote})
	}
	return nil
}

// flatten moves the entries of pulled into target and removes pulled
func (p *Puller) flatten(ctx context.Context, pulled, target string) (int, error) {
	entries, err := p.backend.List(ctx, pulled)
	if err != nil {
		return 0, &models.IOError{Op: "list", Path: pulled, Err: err}
	}

	moved := 0
	for _, e := range entries {
		dest := filepath.Join(target, e.Name)
		if err := p.backend.Move(ctx, e.Path, dest, true); err != nil {
			return moved, &models.IOError{Op: "move", Path: e.Path, Err: err}
		}
		moved++
		p.logger.Debug(ctx, "Moved", logging.Fields{"source": e.Path, "dest": dest})
	}

	if err := p.backend.RemoveDir(ctx, pulled); err != nil {
		return moved, &models.IOError{Op: "remove", Path: pulled, Err: err}
	}
	return moved, nil
}

func (p *Puller) fail(report *models.PullReport, path, op string, err error) (*models.PullReport, error) {
	status := models.StatusFailed
	if errors.Is(err, context.Canceled) {
		status = models.StatusCancelled
	}
	report.AddError(path, op, err)
	report.Finish(status)
	p.formatter.Error(err)
	return report, fmt.Errorf("pull %s: %w", path, err)
}
