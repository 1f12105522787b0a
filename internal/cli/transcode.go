package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/mediakit/pkg/logging"
	"github.com/sdejongh/mediakit/pkg/models"
	"github.com/sdejongh/mediakit/pkg/sizes"
	"github.com/sdejongh/mediakit/pkg/transcode"
)

// TranscodeFlags holds transcode command flags
type TranscodeFlags struct {
	Subfolders bool
	Step       float64
	OnCorrupt  string
	Yes        bool
	DryRun     bool
	TrashDir   string
}

var transcodeFlags TranscodeFlags

// NewTranscodeCommand creates the transcode command and its video, audio
// and cleanup subcommands
func NewTranscodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcode",
		Short: "Compress videos and audio recordings",
		Long: `Encode every source file of a folder into {folder}/Compressed/ with ffmpeg.
Each finished file is recorded in a manifest inside the output folder, so a
folder can be processed again and only new files are encoded.`,
	}

	cmd.PersistentFlags().BoolVar(&transcodeFlags.Subfolders, "subfolders", false, "process the direct subfolders of each given folder")

	for _, kind := range []transcode.Kind{transcode.KindVideo, transcode.KindAudio} {
		cmd.AddCommand(newTranscodeKindCommand(kind))
	}
	cmd.AddCommand(newCleanupCommand())

	return cmd
}

func newTranscodeKindCommand(kind transcode.Kind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(kind) + " [folder...]",
		Short: fmt.Sprintf("Compress the %s files of folders", kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscode(cmd, kind, args)
		},
	}
	cmd.Flags().Float64Var(&transcodeFlags.Step, "progress-step", 0, "minimum progress advance, in percent, between updates")
	cmd.Flags().StringVar(&transcodeFlags.OnCorrupt, "on-corrupt-manifest", "", "warn (start over) or abort")
	return cmd
}

func newCleanupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete originals that have already been compressed",
		Long: `Delete the source files recorded in a folder's manifest whose compressed
output still exists. Files never compressed are kept. With a trash folder
(--trash or transcode.trash_dir) the originals are moved there instead, so
they can be restored.`,
	}
	for _, kind := range []transcode.Kind{transcode.KindVideo, transcode.KindAudio} {
		sub := &cobra.Command{
			Use:   string(kind) + " [folder...]",
			Short: fmt.Sprintf("Delete processed %s originals", kind),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCleanup(cmd, kind, args)
			},
		}
		sub.Flags().BoolVarP(&transcodeFlags.Yes, "yes", "y", false, "delete the originals (otherwise only report them)")
		sub.Flags().BoolVar(&transcodeFlags.DryRun, "dry-run", false, "list the originals without deleting them")
		sub.Flags().StringVar(&transcodeFlags.TrashDir, "trash", "", "move originals into this folder instead of deleting them (default from config)")
		cmd.AddCommand(sub)
	}
	return cmd
}

// transcodeDirs resolves the folders of a run: arguments first, then config
func transcodeDirs(ctx context.Context, s *session, kind transcode.Kind, args []string) ([]string, error) {
	dirs := args
	if len(dirs) == 0 {
		if kind == transcode.KindVideo {
			dirs = s.cfg.Transcode.VideoDirs
		} else {
			dirs = s.cfg.Transcode.AudioDirs
		}
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no %s folders given and none configured", kind)
	}

	resolved := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := resolveDir(string(kind), d, "")
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, abs)
	}
	if transcodeFlags.Subfolders {
		return transcode.ExpandSubfolders(ctx, s.backend, resolved)
	}
	return resolved, nil
}

func runTranscode(cmd *cobra.Command, kind transcode.Kind, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()
	cfg := s.cfg

	if transcodeFlags.Step > 0 {
		cfg.Transcode.ProgressStep = transcodeFlags.Step
	}
	if transcodeFlags.OnCorrupt != "" {
		cfg.Transcode.OnCorruptManifest = transcodeFlags.OnCorrupt
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	profile, err := cfg.Profile(string(kind))
	if err != nil {
		return err
	}
	dirs, err := transcodeDirs(ctx, s, kind, args)
	if err != nil {
		return err
	}

	encoder := transcode.NewFFmpeg(cfg.Transcode.FFmpegPath, cfg.Transcode.FFprobePath)
	pipeline := transcode.NewPipeline(profile, encoder, s.backend, s.formatter, s.logger, transcode.PipelineConfig{
		ProgressStep:      cfg.Transcode.ProgressStep,
		OnCorruptManifest: cfg.Transcode.OnCorruptManifest,
	})

	defer s.batchOutput(len(dirs))()

	var total sizes.Tally
	for _, dir := range dirs {
		report, err := pipeline.Run(ctx, dir)
		if err != nil {
			return finishRun(report, err, ReportFlags{})
		}
		for _, f := range report.Files {
			if f.Outcome == models.OutcomeDone {
				total.Add(f.Size.SizeA, f.Size.SizeB)
			}
		}
	}

	if len(dirs) > 1 {
		c := total.Comparison()
		s.logger.Info(ctx, "All folders compressed", logging.Fields{
			"folders":   len(dirs),
			"processed": total.Files,
			"input":     c.HumanA,
			"output":    c.HumanB,
			"ratio":     c.Ratio,
		})
	}
	return nil
}

func runCleanup(cmd *cobra.Command, kind transcode.Kind, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	profile, err := s.cfg.Profile(string(kind))
	if err != nil {
		return err
	}
	dirs, err := transcodeDirs(ctx, s, kind, args)
	if err != nil {
		return err
	}

	var trash string
	if transcodeFlags.TrashDir != "" || s.cfg.Transcode.TrashDir != "" {
		if trash, err = resolveTarget("trash", transcodeFlags.TrashDir, s.cfg.Transcode.TrashDir); err != nil {
			return err
		}
	}

	cleaner := transcode.NewCleaner(profile, s.backend, s.formatter, s.logger, transcode.CleanerOptions{TrashDir: trash})
	defer s.batchOutput(len(dirs))()

	w := s.notes(cmd)
	for _, dir := range dirs {
		plan, err := cleaner.Plan(ctx, dir)
		if err != nil {
			return err
		}
		if len(plan.Files) == 0 {
			fmt.Fprintf(w, "%s: no processed %s originals\n", dir, kind)
			continue
		}

		fmt.Fprintf(w, "%s: %d processed %s originals (%s)\n", dir, len(plan.Files), kind, sizes.Human(plan.Bytes))
		if transcodeFlags.DryRun {
			for _, f := range plan.Files {
				fmt.Fprintf(w, "  %s\n", f)
			}
			continue
		}
		if !transcodeFlags.Yes {
			fmt.Fprintln(w, "  nothing deleted, rerun with --yes to remove them")
			continue
		}
		if err := cleaner.Apply(ctx, plan); err != nil {
			return finishRun(plan, err, ReportFlags{})
		}
	}
	return nil
}
