package output

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/sdejongh/mediakit/pkg/models"
	"github.com/sdejongh/mediakit/pkg/sizes"
)

// EventType names a progress notification
type EventType string

const (
	// EventFileStart is sent before a file is handled; Index is 1-based
	EventFileStart EventType = "file_start"
	// EventFileProgress carries encoder progress for the current file
	EventFileProgress EventType = "file_progress"
	// EventFileComplete is sent when a file was transcoded; Sizes is set
	EventFileComplete EventType = "file_complete"
	// EventFileSkipped is sent when a file was left alone; Message holds the reason
	EventFileSkipped EventType = "file_skipped"
	// EventFileMoved is sent when a file was moved (or would be, on a dry run)
	EventFileMoved EventType = "file_moved"
	// EventFileRemoved is sent when a file or folder was deleted
	EventFileRemoved EventType = "file_removed"
	// EventFileError is sent when a file failed
	EventFileError EventType = "file_error"
	// EventBucket announces a date bucket before its files
	EventBucket EventType = "bucket"
)

// Event is a progress notification sent while a command runs
type Event struct {
	Type    EventType
	Path    string
	Target  string
	Index   int
	Total   int
	Percent float64
	Bytes   uint64
	Sizes   *sizes.Comparison
	Message string
	Error   error
}

// Formatter defines the interface for output formatting
type Formatter interface {
	// Start begins a run over total items
	Start(writer io.Writer, title string, total int) error

	// Progress reports one event
	Progress(event Event) error

	// Complete prints the final report
	Complete(report models.Report) error

	// Error reports an error that ended the run
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter for a format name. With progress set, "human"
// becomes a progress bar when w is a terminal.
func New(format string, progress bool, w io.Writer) (Formatter, error) {
	switch format {
	case "", "human":
		if progress && IsTerminal(w) {
			return NewProgressFormatter(), nil
		}
		return NewHumanFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	case "progress":
		return NewProgressFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Discard is a formatter that prints nothing
type Discard struct{}

func (Discard) Start(io.Writer, string, int) error { return nil }
func (Discard) Progress(Event) error               { return nil }
func (Discard) Complete(models.Report) error       { return nil }
func (Discard) Error(error) error                  { return nil }
func (Discard) Name() string                       { return "discard" }

// OrDiscard returns f, or Discard when f is nil
func OrDiscard(f Formatter) Formatter {
	if f == nil {
		return Discard{}
	}
	return f
}
