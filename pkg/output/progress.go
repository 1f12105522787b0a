package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/mediakit/pkg/models"
)

const progressTemplate = `{{string . "prefix"}}{{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{string . "suffix"}}`

// refreshInterval returns the bar refresh rate; Windows consoles flicker
// with fast ANSI updates
func refreshInterval() time.Duration {
	if runtime.GOOS == "windows" {
		return 300 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// ProgressFormatter draws a single bar over the files of a run and shows the
// current file and its encoder progress next to it
type ProgressFormatter struct {
	mu        sync.Mutex
	writer    io.Writer
	bar       *pb.ProgressBar
	termWidth int
	failures  []Event
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter() *ProgressFormatter {
	return &ProgressFormatter{}
}

// Start creates the bar
func (f *ProgressFormatter) Start(writer io.Writer, title string, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer

	f.termWidth = 120
	if file, ok := writer.(*os.File); ok {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			f.termWidth = width
		}
	}

	f.bar = pb.New(total).
		SetTemplateString(progressTemplate).
		SetWriter(writer).
		SetRefreshRate(refreshInterval()).
		SetWidth(f.termWidth)
	f.bar.Set("prefix", title+" ")
	f.bar.Start()
	return nil
}

// Progress advances the bar
func (f *ProgressFormatter) Progress(e Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar == nil {
		return nil
	}

	switch e.Type {
	case EventFileStart:
		f.bar.Set("suffix", truncate(filepath.Base(e.Path), f.termWidth/3))
	case EventFileProgress:
		f.bar.Set("suffix", fmt.Sprintf("%s %3.0f%%", truncate(filepath.Base(e.Path), f.termWidth/3), e.Percent))
	case EventFileComplete, EventFileSkipped, EventFileMoved, EventFileRemoved:
		f.bar.Increment()
	case EventFileError:
		f.failures = append(f.failures, e)
		f.bar.Increment()
	}
	return nil
}

// Complete stops the bar and prints the summary
func (f *ProgressFormatter) Complete(report models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar != nil {
		f.bar.Set("suffix", "")
		f.bar.Finish()
		f.bar = nil
	}

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

// Error stops the bar and prints the error
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
	if f.writer != nil {
		fmt.Fprintf(f.writer, "\nError: %v\n", err)
	}
	return nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}
