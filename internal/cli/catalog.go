package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/mediakit/pkg/catalog"
	"github.com/sdejongh/mediakit/pkg/compare"
	"github.com/sdejongh/mediakit/pkg/metadata"
)

// CatalogFlags holds catalog command flags
type CatalogFlags struct {
	Source     string
	Target     string
	Extensions []string
	Compare    string
	Reader     string
	Workers    int
	DryRun     bool
	Report     ReportFlags
}

var catalogFlags CatalogFlags

// NewCatalogCommand creates the catalog command
func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Move photos and videos into year-month folders",
		Long: `Move the media files of a source folder into {target}/{YYYY}-{MM} folders
named after their capture date. The date comes from embedded metadata and
falls back to the file's creation time. Files are never overwritten: a file
whose name already exists in its folder is skipped and reported.`,
		Args: cobra.NoArgs,
		RunE: runCatalog,
	}

	cmd.Flags().StringVarP(&catalogFlags.Source, "source", "s", "", "folder to catalog (default from config)")
	cmd.Flags().StringVarP(&catalogFlags.Target, "target", "t", "", "library root receiving the year-month folders (default from config)")
	cmd.Flags().StringSliceVar(&catalogFlags.Extensions, "ext", nil, "file extensions to catalog, e.g. .jpg,.dng")
	cmd.Flags().StringVar(&catalogFlags.Compare, "compare", "", "how name clashes are classified: hash, size")
	cmd.Flags().StringVar(&catalogFlags.Reader, "reader", "", "metadata reader: auto, exiftool, goexif")
	cmd.Flags().IntVarP(&catalogFlags.Workers, "parallel", "p", 0, "metadata reader invocations in flight (default: CPU count)")
	cmd.Flags().BoolVar(&catalogFlags.DryRun, "dry-run", false, "show where files would go without moving them")
	addReportFlags(cmd, &catalogFlags.Report)

	return cmd
}

func runCatalog(cmd *cobra.Command, args []string) error {
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

	if len(catalogFlags.Extensions) > 0 {
		cfg.Catalog.Extensions = catalogFlags.Extensions
	}
	if catalogFlags.Compare != "" {
		cfg.Catalog.Compare = catalogFlags.Compare
	}
	if catalogFlags.Reader != "" {
		cfg.Metadata.Reader = catalogFlags.Reader
	}
	if catalogFlags.Workers > 0 {
		cfg.Metadata.Workers = catalogFlags.Workers
	}

	source, err := resolveDir("source", catalogFlags.Source, cfg.Catalog.Source)
	if err != nil {
		return err
	}
	target, err := resolveTarget("target", catalogFlags.Target, cfg.Catalog.Target)
	if err != nil {
		return err
	}
	if err := validateSourceTarget(source, target); err != nil {
		return err
	}

	reader, err := metadata.NewReader(cfg.Metadata.Reader, cfg.Metadata.ExifToolPath)
	if err != nil {
		return fmt.Errorf("failed to create metadata reader: %w", err)
	}
	comparator, err := compare.New(cfg.Catalog.Compare)
	if err != nil {
		return err
	}

	resolver := metadata.NewResolver(reader, s.logger, metadata.ResolverConfig{
		Workers:   cfg.Metadata.Workers,
		ChunkSize: cfg.Metadata.ChunkSize,
	})
	mover := catalog.NewMover(s.backend, resolver, comparator, s.formatter, s.logger, catalog.Options{
		Extensions: cfg.Catalog.Extensions,
		DryRun:     catalogFlags.DryRun,
	})

	report, err := mover.Catalog(ctx, source, target)
	if report == nil {
		return err
	}
	return finishRun(report, err, catalogFlags.Report)
}
