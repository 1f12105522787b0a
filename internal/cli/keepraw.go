package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sdejongh/mediakit/pkg/dedupe"
)

// KeepRawFlags holds keep-raw command flags
type KeepRawFlags struct {
	DuplicatesDir string
	TrashedDir    string
	Purge         bool
	Report        ReportFlags
}

var keepRawFlags KeepRawFlags

// NewKeepRawCommand creates the keep-raw command
func NewKeepRawCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keep-raw [images-folder]",
		Short: "Set aside JPEGs that have a RAW twin and trashed phone files",
		Long: `Move every .jpg that has a .dng sibling into the duplicates folder and every
file the phone marked as trashed (.trashed-*) into the trashed folder.
Existing files in those folders are overwritten. With --purge both folders
are emptied afterwards, keeping only their .gitignore.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runKeepRaw,
	}

	cmd.Flags().StringVar(&keepRawFlags.DuplicatesDir, "duplicates", "", "folder receiving JPEG duplicates (default from config)")
	cmd.Flags().StringVar(&keepRawFlags.TrashedDir, "trashed", "", "folder receiving trashed files (default from config)")
	cmd.Flags().BoolVar(&keepRawFlags.Purge, "purge", false, "empty the duplicates and trashed folders after moving")
	addReportFlags(cmd, &keepRawFlags.Report)

	return cmd
}

func runKeepRaw(cmd *cobra.Command, args []string) error {
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

	var arg string
	if len(args) == 1 {
		arg = args[0]
	}
	images, err := resolveDir("images", arg, cfg.Dedupe.ImagesDir)
	if err != nil {
		return err
	}
	duplicates, err := resolveTarget("duplicates", keepRawFlags.DuplicatesDir, cfg.Dedupe.DuplicatesDir)
	if err != nil {
		return err
	}
	trashed, err := resolveTarget("trashed", keepRawFlags.TrashedDir, cfg.Dedupe.TrashedDir)
	if err != nil {
		return err
	}
	for _, dir := range []string{duplicates, trashed} {
		if err := validateSourceTarget(images, dir); err != nil {
			return err
		}
	}

	keeper := dedupe.NewKeeper(s.backend, s.formatter, s.logger, dedupe.Options{
		DuplicatesDir: duplicates,
		TrashedDir:    trashed,
		Purge:         keepRawFlags.Purge,
	})
	report, err := keeper.Run(ctx, images)
	if report == nil {
		return err
	}
	return finishRun(report, err, keepRawFlags.Report)
}
