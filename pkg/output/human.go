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

const separator = "------------------------------------------------------------"

// HumanFormatter prints line-oriented output for people
type HumanFormatter struct {
	writer    io.Writer
	title     string
	total     int
	startTime time.Time
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, title string, total int) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.title = title
	f.total = total
	f.startTime = time.Now()

	fmt.Fprintf(writer, "%s: %d files\n", title, total)
	return nil
}

// Progress prints one event
func (f *HumanFormatter) Progress(e Event) error {
	if f.writer == nil {
		return nil
	}
	w := f.writer

	switch e.Type {
	case EventFileStart:
		fmt.Fprintln(w, separator)
		fmt.Fprintf(w, "File %d of %d (%d%%)...\n", e.Index, e.Total, percentOf(e.Index, e.Total))
		fmt.Fprintf(w, "Input: %s\n", e.Path)

	case EventFileProgress:
		if e.Bytes > 0 {
			fmt.Fprintf(w, "Processing: %3.0f%% (%s)\n", e.Percent, sizes.Human(e.Bytes))
		} else {
			fmt.Fprintf(w, "Processing: %3.0f%%\n", e.Percent)
		}

	case EventFileComplete:
		fmt.Fprintf(w, "Output: %s\n", e.Target)
		if e.Sizes != nil {
			printSizes(w, "", *e.Sizes)
		}

	case EventFileSkipped:
		if e.Target != "" {
			fmt.Fprintf(w, "  %s skipped (%s): %s exists\n", e.Path, e.Message, e.Target)
		} else {
			fmt.Fprintf(w, "%s. Skipping\n", e.Message)
		}

	case EventFileMoved:
		fmt.Fprintf(w, "  %s -> %s\n", e.Path, e.Target)

	case EventFileRemoved:
		fmt.Fprintf(w, "  removed %s\n", e.Path)

	case EventFileError:
		fmt.Fprintf(w, "  ✗ %s: %v\n", e.Path, e.Error)

	case EventBucket:
		fmt.Fprintf(w, "%s (%d files)\n", e.Target, e.Total)
	}

	return nil
}

// Complete prints the summary block
func (f *HumanFormatter) Complete(report models.Report) error {
	w := f.writer
	if w == nil {
		w = io.Discard
	}
	info := report.Info()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s completed in %s\n", info.Command, info.Duration.Round(time.Millisecond))
	fmt.Fprintln(w)
	writeSummary(w, report)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Status: %s\n", info.Status)

	writeErrors(w, info.Errors)
	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	if f.writer != nil {
		fmt.Fprintf(f.writer, "Error: %v\n", err)
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func writeSummary(w io.Writer, report models.Report) {
	lines := report.Summary()
	width := 0
	for _, l := range lines {
		width = max(width, len(l.Label))
	}
	fmt.Fprintln(w, "Summary:")
	for _, l := range lines {
		fmt.Fprintf(w, "  %-*s  %s\n", width+1, l.Label+":", l.Value)
	}
}

func writeErrors(w io.Writer, errs []models.RunError) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintf(w, "\nErrors:\n")
	for _, e := range errs {
		fmt.Fprintf(w, "  %s: %s\n", e.FilePath, e.Error)
	}
}

func printSizes(w io.Writer, indent string, c sizes.Comparison) {
	fmt.Fprintf(w, "%sInput size:  %s\n", indent, c.HumanA)
	fmt.Fprintf(w, "%sOutput size: %s\n", indent, c.HumanB)
	fmt.Fprintf(w, "%sSavings:     %s (%s of original)\n", indent, c.Difference, c.Ratio)
}

func percentOf(n, total int) int {
	if total <= 0 {
		return 0
	}
	return n * 100 / total
}

// truncate shortens s to width runes, keeping the tail which holds the file name
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 3 || len(r) <= width {
		return s
	}
	return "..." + strings.TrimLeft(string(r[len(r)-width+3:]), " ")
}
