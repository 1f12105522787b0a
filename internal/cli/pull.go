package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdejongh/mediakit/pkg/device"
)

// PullFlags holds pull command flags
type PullFlags struct {
	Target       string
	Dirs         []string
	DeleteRemote bool
	Yes          bool
	Report       ReportFlags
}

var pullFlags PullFlags

// NewPullCommand creates the pull command
func NewPullCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull <device>",
		Short: "Copy camera folders from an Android device",
		Long: `Pull the camera folders of a configured device over adb into the import
folder, flattening them so all files land directly in it. Folders missing on
the device are skipped. With --delete-remote the pulled folders are then
deleted from the device.`,
		Args: cobra.ExactArgs(1),
		RunE: runPull,
	}

	cmd.Flags().StringVarP(&pullFlags.Target, "target", "t", "", "import folder (default from config)")
	cmd.Flags().StringSliceVar(&pullFlags.Dirs, "dir", nil, "remote folders to pull (default from config)")
	cmd.Flags().BoolVar(&pullFlags.DeleteRemote, "delete-remote", false, "delete the pulled folders from the device")
	cmd.Flags().BoolVarP(&pullFlags.Yes, "yes", "y", false, "confirm --delete-remote")
	addReportFlags(cmd, &pullFlags.Report)

	return cmd
}

func runPull(cmd *cobra.Command, args []string) error {
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

	dev, err := device.Lookup(cfg.Devices, args[0])
	if err != nil {
		return err
	}
	target, err := resolveTarget("target", pullFlags.Target, cfg.Pull.TargetDir)
	if err != nil {
		return err
	}
	dirs := pullFlags.Dirs
	if len(dirs) == 0 {
		dirs = cfg.Pull.SourceDirs
	}
	if len(dirs) == 0 {
		return fmt.Errorf("no remote folders given and none configured")
	}

	runner := device.NewADB(cfg.Pull.ADBPath, dev.Serial)
	puller := device.NewPuller(dev, runner, s.backend, s.formatter, s.logger)

	report, err := puller.Pull(ctx, dirs, target)
	if err != nil || !pullFlags.DeleteRemote {
		if report == nil {
			return err
		}
		return finishRun(report, err, pullFlags.Report)
	}

	var pulled []string
	for _, d := range report.Dirs {
		if !d.Missing {
			pulled = append(pulled, d.Remote)
		}
	}
	switch {
	case len(pulled) == 0:
	case pullFlags.Yes:
		err = puller.Remove(ctx, report)
	default:
		fmt.Fprintf(s.notes(cmd), "Not deleting %s from %s, rerun with --yes to remove them\n",
			strings.Join(pulled, ", "), dev.Name)
	}
	return finishRun(report, err, pullFlags.Report)
}
