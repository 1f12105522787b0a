package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sdejongh/mediakit/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()

	if err == nil {
		return
	}

	code := 1
	var exitErr *cli.ExitCodeError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
		if exitErr.Err == nil {
			os.Exit(code)
		}
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(code)
}

func run(ctx context.Context) error {
	cli.Version, cli.Commit, cli.BuildDate = version, commit, date

	rootCmd := &cobra.Command{
		Use:   "mediakit",
		Short: "Personal photo, video and audio housekeeping",
		Long: `mediakit keeps a personal media library in order. It catalogs photos and
videos into year-month folders by capture date, compresses video and audio
recordings with ffmpeg while remembering what was already done, sets aside
JPEGs shot alongside RAW files, prunes empty folders and pulls camera
folders from Android phones.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	cli.AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(cli.NewCatalogCommand())
	rootCmd.AddCommand(cli.NewTranscodeCommand())
	rootCmd.AddCommand(cli.NewKeepRawCommand())
	rootCmd.AddCommand(cli.NewPruneCommand())
	rootCmd.AddCommand(cli.NewPullCommand())
	rootCmd.AddCommand(cli.NewConfigCommand())
	rootCmd.AddCommand(cli.NewVersionCommand())

	return rootCmd.ExecuteContext(ctx)
}
