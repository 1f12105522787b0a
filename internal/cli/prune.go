package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sdejongh/mediakit/pkg/prune"
)

// PruneFlags holds prune command flags
type PruneFlags struct {
	DryRun bool
	Report ReportFlags
}

var pruneFlags PruneFlags

// NewPruneCommand creates the prune command
func NewPruneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune [folder]",
		Short: "Remove empty folders",
		Long: `Remove every folder below the given root that is empty, or becomes empty
once its own empty subfolders are removed. The root itself is kept.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPrune,
	}

	cmd.Flags().BoolVar(&pruneFlags.DryRun, "dry-run", false, "list empty folders without removing them")
	addReportFlags(cmd, &pruneFlags.Report)

	return cmd
}

func runPrune(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	var arg string
	if len(args) == 1 {
		arg = args[0]
	}
	root, err := resolveDir("root", arg, s.cfg.Prune.Root)
	if err != nil {
		return err
	}

	report, err := prune.NewPruner(s.backend, s.formatter, s.logger).Prune(ctx, root, pruneFlags.DryRun)
	if report == nil {
		return err
	}
	return finishRun(report, err, pruneFlags.Report)
}
