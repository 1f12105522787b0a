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
	"github.com/sdejongh/mediakit/pkg/sizes"
	"github.com/sdejongh/mediakit/pkg/storage"
)

// Corrupt manifest policies
const (
	CorruptWarn  = "warn"
	CorruptAbort = "abort"
)

// PipelineConfig holds pipeline settings
type PipelineConfig struct {
	// ProgressStep is the minimum advance, in points, between progress reports
	ProgressStep float64
	// OnCorruptManifest is CorruptWarn (start from an empty manifest) or CorruptAbort
	OnCorruptManifest string
}

// Pipeline encodes the files of a folder one at a time and records each
// finished file in the folder's manifest
type Pipeline struct {
	profile   Profile
	encoder   Encoder
	backend   storage.Backend
	formatter output.Formatter
	logger    logging.Logger
	config    PipelineConfig
}

// NewPipeline creates a transcode pipeline
func NewPipeline(
	profile Profile,
	encoder Encoder,
	backend storage.Backend,
	formatter output.Formatter,
	logger logging.Logger,
	config PipelineConfig,
) *Pipeline {
	if config.OnCorruptManifest == "" {
		config.OnCorruptManifest = CorruptWarn
	}
	return &Pipeline{
		profile:   profile,
		encoder:   encoder,
		backend:   backend,
		formatter: output.OrDiscard(formatter),
		logger:    logging.OrNull(logger),
		config:    config,
	}
}

// Run processes every source file of sourceDir. Files already in the manifest
// are skipped without calling the encoder. The first encoder or filesystem
// failure stops the batch; files finished before it stay recorded.
func (p *Pipeline) Run(ctx context.Context, sourceDir string) (*models.TranscodeReport, error) {
	report := &models.TranscodeReport{
		RunInfo:   models.NewRunInfo("transcode " + string(p.profile.Kind)),
		Kind:      string(p.profile.Kind),
		SourceDir: sourceDir,
	}

	inputs, err := Sources(ctx, p.backend, p.profile, sourceDir)
	if err != nil {
		return p.fail(report, sourceDir, "scan", err)
	}
	if len(inputs) == 0 {
		p.logger.Info(ctx, "No source files", logging.Fields{"dir": sourceDir, "kind": string(p.profile.Kind)})
		report.Finish(models.StatusSuccess)
		return report, nil
	}

	m, err := p.openManifest(ctx, sourceDir)
	if err != nil {
		return p.fail(report, p.profile.ManifestPath(sourceDir), "manifest", err)
	}

	p.logger.Info(ctx, "Starting transcode", logging.Fields{
		"dir":     sourceDir,
		"kind":    string(p.profile.Kind),
		"files":   len(inputs),
		"encoder": p.encoder.Name(),
		"params":  p.profile.Params.String(),
	})
	p.formatter.Start(nil, fmt.Sprintf("Compressing %s in %s", p.profile.Kind, sourceDir), len(inputs))

	for i, input := range inputs {
		if err := ctx.Err(); err != nil {
			return p.fail(report, input, "transcode", err)
		}

		p.formatter.Progress(output.Event{Type: output.EventFileStart, Path: input, Index: i + 1, Total: len(inputs)})

		if entry, ok := m.Find(input); ok {
			report.Files = append(report.Files, p.alreadyDone(ctx, entry))
			p.formatter.Progress(output.Event{
				Type:    output.EventFileSkipped,
				Path:    input,
				Message: "File already processed",
			})
			continue
		}

		file, err := p.transcode(ctx, m, input)
		report.Files = append(report.Files, file)
		if err != nil {
			return p.fail(report, input, "transcode", err)
		}
	}

	summarize(report)
	report.Finish(models.StatusSuccess)

	p.logger.Info(ctx, "Transcode completed", logging.Fields{
		"dir":       sourceDir,
		"processed": report.ProcessedCount,
		"skipped":   report.SkippedCount,
		"input":     report.Processed.HumanA,
		"output":    report.Processed.HumanB,
		"ratio":     report.Processed.Ratio,
	})
	p.formatter.Complete(report)
	return report, nil
}

// Sources lists the files of dir the profile accepts, sorted by name
func Sources(ctx context.Context, backend storage.Backend, profile Profile, dir string) ([]string, error) {
	entries, err := backend.List(ctx, dir)
	if err != nil {
		return nil, &models.IOError{Op: "list", Path: dir, Err: err}
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir && profile.Matches(e.Name) {
			files = append(files, e.Path)
		}
	}
	return files, nil
}

// ExpandSubfolders replaces each folder by its direct subfolders, skipping
// the Compressed output folders
func ExpandSubfolders(ctx context.Context, backend storage.Backend, dirs []string) ([]string, error) {
	var out []string
	for _, dir := range dirs {
		entries, err := backend.List(ctx, dir)
		if err != nil {
			return nil, &models.IOError{Op: "list", Path: dir, Err: err}
		}
		for _, e := range entries {
			if e.IsDir && e.Name != OutputDir {
				out = append(out, e.Path)
			}
		}
	}
	return out, nil
}

func (p *Pipeline) openManifest(ctx context.Context, sourceDir string) (*manifest.Manifest, error) {
	m, err := manifest.Open(p.profile.ManifestPath(sourceDir))
	if err == nil {
		return m, nil
	}

	var corrupt *models.ManifestCorruptionError
	if errors.As(err, &corrupt) && p.config.OnCorruptManifest != CorruptAbort {
		p.logger.Warn(ctx, "Manifest is corrupt, starting from an empty one", logging.Fields{
			"path":   corrupt.Path,
			"error":  corrupt.Err.Error(),
			"backup": "kept on first update",
		})
		return m, nil
	}
	return nil, err
}

// alreadyDone reports a manifested file with its recorded sizes, or zero
// when the recorded output is gone
func (p *Pipeline) alreadyDone(ctx context.Context, entry models.ManifestEntry) models.TranscodedFile {
	file := models.TranscodedFile{
		Input:   entry.File.Input,
		Output:  entry.File.Output,
		Outcome: models.OutcomeAlreadyDone,
		Size:    sizes.Compare(0, 0),
	}

	exists, err := p.backend.Exists(ctx, entry.File.Output)
	if err != nil {
		p.logger.Warn(ctx, "Could not check recorded output", logging.Fields{"path": entry.File.Output, "error": err.Error()})
	}
	if exists {
		file.Size = sizes.Compare(entry.Size.SizeA, entry.Size.SizeB)
	}

	p.logger.Debug(ctx, "Already processed", logging.Fields{"path": entry.File.Input, "output_present": exists})
	return file
}

func (p *Pipeline) transcode(ctx context.Context, m *manifest.Manifest, input string) (models.TranscodedFile, error) {
	out := p.profile.OutputPath(input)
	file := models.TranscodedFile{Input: input, Output: out, Outcome: models.OutcomeFailed}

	if err := p.backend.MkdirAll(ctx, filepath.Dir(out)); err != nil {
		return file, &models.IOError{Op: "mkdir", Path: filepath.Dir(out), Err: err}
	}

	p.logger.Info(ctx, "Compressing", logging.Fields{"input": input, "output": out})
	if err := p.encode(ctx, input, Job{Input: input, Output: out, Params: p.profile.Params}); err != nil {
		return file, err
	}

	cmp, err := sizes.CompareFiles(input, out)
	if err != nil {
		return file, &models.IOError{Op: "stat", Path: out, Err: err}
	}
	if err := m.Update(models.NewManifestEntry(input, out, cmp.SizeA, cmp.SizeB)); err != nil {
		return file, err
	}

	file.Outcome = models.OutcomeDone
	file.Size = cmp

	p.logger.Info(ctx, "Compressed", logging.Fields{
		"input":   input,
		"in":      cmp.HumanA,
		"out":     cmp.HumanB,
		"savings": cmp.Difference,
		"ratio":   cmp.Ratio,
	})
	p.formatter.Progress(output.Event{Type: output.EventFileComplete, Path: input, Target: out, Sizes: &cmp})
	return file, nil
}

// encode runs one job and forwards throttled progress until the encoder returns
func (p *Pipeline) encode(ctx context.Context, input string, job Job) error {
	progress := make(chan Progress, 16)
	done := make(chan struct{})
	throttle := NewThrottle(p.config.ProgressStep)

	go func() {
		defer close(done)
		for pr := range progress {
			if !throttle.Check(pr.Percent) {
				continue
			}
			p.logger.Debug(ctx, "Processing", logging.Fields{"path": input, "percent": pr.Percent, "size": pr.TargetSize})
			p.formatter.Progress(output.Event{
				Type:    output.EventFileProgress,
				Path:    input,
				Percent: pr.Percent,
				Bytes:   pr.TargetSize,
			})
		}
	}()

	err := p.encoder.Encode(ctx, job, progress)
	close(progress)
	<-done

	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var procErr *models.ExternalProcessError
	if errors.As(err, &procErr) {
		return err
	}
	return &models.ExternalProcessError{Tool: p.encoder.Name(), Path: input, Err: err}
}

func (p *Pipeline) fail(report *models.TranscodeReport, path, op string, err error) (*models.TranscodeReport, error) {
	status := models.StatusFailed
	if errors.Is(err, context.Canceled) {
		status = models.StatusCancelled
	}
	report.AddError(path, op, err)
	summarize(report)
	report.Finish(status)
	p.formatter.Error(err)
	return report, fmt.Errorf("transcode %s: %w", path, err)
}

// summarize totals processed files and skipped files separately and together
func summarize(report *models.TranscodeReport) {
	var processed, skipped sizes.Tally
	for _, f := range report.Files {
		switch f.Outcome {
		case models.OutcomeDone:
			processed.Add(f.Size.SizeA, f.Size.SizeB)
		case models.OutcomeAlreadyDone:
			skipped.Add(f.Size.SizeA, f.Size.SizeB)
		}
	}
	total := processed
	total.Merge(skipped)

	report.ProcessedCount = processed.Files
	report.SkippedCount = skipped.Files
	report.Processed = processed.Comparison()
	report.Skipped = skipped.Comparison()
	report.Total = total.Comparison()
}
