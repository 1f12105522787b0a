package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/mediakit/pkg/models"
	"github.com/sdejongh/mediakit/pkg/sizes"
)

// WriteRunReport writes a report file. Format can be "human" or "json".
func WriteRunReport(report models.Report, path string, format string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	switch format {
	case "json":
		err = encodeReport(file, report, nil)
	default:
		err = writeReportHuman(report, file)
	}
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to write report file: %w", cerr)
	}
	return err
}

func writeReportHuman(report models.Report, w io.Writer) error {
	info := report.Info()
	title := fmt.Sprintf("%s report", info.Command)

	fmt.Fprintf(w, "%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	fmt.Fprintf(w, "Run:       %s\n", info.RunID)
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Status:    %s\n", info.Status)
	fmt.Fprintf(w, "Dry run:   %v\n\n", info.DryRun)

	writeSummary(w, report)
	fmt.Fprintln(w)

	switch r := report.(type) {
	case *models.CatalogReport:
		writeCatalogDetails(w, r)
	case *models.TranscodeReport:
		writeTranscodeDetails(w, r)
	case *models.CleanupReport:
		writeList(w, "Originals", r.Files)
	case *models.DedupeReport:
		writeList(w, "JPEG duplicates", r.Duplicates)
		writeList(w, "Trashed", r.Trashed)
	case *models.PruneReport:
		writeList(w, "Empty folders", r.Removed)
	case *models.PullReport:
		writePullDetails(w, r)
	}

	writeErrors(w, info.Errors)
	return nil
}

func section(w io.Writer, label string, n int) {
	heading := fmt.Sprintf("%s (%d)", label, n)
	fmt.Fprintf(w, "%s\n%s\n", heading, strings.Repeat("-", len(heading)))
}

func writeList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	section(w, label, len(items))
	for _, it := range items {
		fmt.Fprintf(w, "  %s\n", it)
	}
	fmt.Fprintln(w)
}

func writeCatalogDetails(w io.Writer, r *models.CatalogReport) {
	if len(r.Moves) > 0 {
		section(w, "Moved", len(r.Moves))
		for _, m := range r.Moves {
			fmt.Fprintf(w, "  %s -> %s [%s]\n", m.Source, m.Destination, m.DateSource)
		}
		fmt.Fprintln(w)
	}

	byReason := make(map[models.SkipReason][]models.CatalogSkip)
	for _, s := range r.Skips {
		byReason[s.Reason] = append(byReason[s.Reason], s)
	}
	labels := []struct {
		reason models.SkipReason
		label  string
	}{
		{models.SkipIdentical, "Already cataloged"},
		{models.SkipNameClash, "Name clashes"},
	}
	for _, l := range labels {
		skips := byReason[l.reason]
		if len(skips) == 0 {
			continue
		}
		section(w, l.label, len(skips))
		for _, s := range skips {
			fmt.Fprintf(w, "  %s\n    exists: %s\n", s.Source, s.Destination)
		}
		fmt.Fprintln(w)
	}

	writeList(w, "Unresolved capture dates", r.Unresolved)
}

func writeTranscodeDetails(w io.Writer, r *models.TranscodeReport) {
	if len(r.Files) == 0 {
		return
	}
	section(w, "Files", len(r.Files))
	for _, f := range r.Files {
		fmt.Fprintf(w, "  %s [%s]\n", f.Input, f.Outcome)
		if f.Outcome != models.OutcomeFailed {
			fmt.Fprintf(w, "    -> %s  %s -> %s (%s)\n", f.Output, f.Size.HumanA, f.Size.HumanB, f.Size.Ratio)
		}
	}
	fmt.Fprintln(w)
	printSizes(w, "", r.Total)
	fmt.Fprintln(w)
}

func writePullDetails(w io.Writer, r *models.PullReport) {
	section(w, "Folders", len(r.Dirs))
	for _, d := range r.Dirs {
		switch {
		case d.Missing:
			fmt.Fprintf(w, "  %s: not on device\n", d.Remote)
		case d.Removed:
			fmt.Fprintf(w, "  %s: %d files, removed from device\n", d.Remote, d.Files)
		default:
			fmt.Fprintf(w, "  %s: %d files\n", d.Remote, d.Files)
		}
	}
	fmt.Fprintln(w)
}

// FormatSizes renders a comparison on one line, e.g. "8.2 MB -> 2.1 MB (26%)"
func FormatSizes(c sizes.Comparison) string {
	return fmt.Sprintf("%s -> %s (%s)", c.HumanA, c.HumanB, c.Ratio)
}
