package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/sdejongh/mediakit/pkg/models"
)

// JSONFormatter prints only the final report, as indented JSON, so the
// output can be piped into other tools
type JSONFormatter struct {
	writer io.Writer
	events []JSONEvent
	batch  bool
	held   []JSONReport
}

// JSONEvent represents a single recorded event
type JSONEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Path      string    `json:"path,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// JSONReport wraps a report with its human summary
type JSONReport struct {
	Report  models.Report     `json:"report"`
	Summary map[string]string `json:"summary"`
	Events  []JSONEvent       `json:"events,omitempty"`
}

// JSONBatch is the single document written for a run over several folders
type JSONBatch struct {
	Reports []JSONReport `json:"reports"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, title string, total int) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.events = nil
	return nil
}

// Progress records failures only; the stream stays a single JSON document
func (f *JSONFormatter) Progress(e Event) error {
	if e.Type == EventFileError && e.Error != nil {
		f.events = append(f.events, JSONEvent{
			Timestamp: time.Now(),
			Type:      string(e.Type),
			Path:      e.Path,
			Error:     e.Error.Error(),
		})
	}
	return nil
}

// Complete writes the report, or holds it until Flush in batch mode
func (f *JSONFormatter) Complete(report models.Report) error {
	if f.writer == nil {
		f.writer = io.Discard
	}
	doc := newJSONReport(report, f.events)
	if f.batch {
		f.held = append(f.held, doc)
		return nil
	}
	return writeJSON(f.writer, doc)
}

// Batch makes Complete collect reports so that several runs end up in one
// document written by Flush
func (f *JSONFormatter) Batch() {
	f.batch = true
}

// Flush writes the reports collected in batch mode as one JSONBatch
func (f *JSONFormatter) Flush() error {
	if !f.batch || len(f.held) == 0 {
		return nil
	}
	if f.writer == nil {
		f.writer = os.Stdout
	}
	held := f.held
	f.held = nil
	return writeJSON(f.writer, JSONBatch{Reports: held})
}

// Error records an error
func (f *JSONFormatter) Error(err error) error {
	f.events = append(f.events, JSONEvent{
		Timestamp: time.Now(),
		Type:      "error",
		Error:     err.Error(),
	})
	return nil
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func newJSONReport(report models.Report, events []JSONEvent) JSONReport {
	summary := make(map[string]string)
	for _, l := range report.Summary() {
		summary[l.Label] = l.Value
	}
	return JSONReport{Report: report, Summary: summary, Events: events}
}

func encodeReport(w io.Writer, report models.Report, events []JSONEvent) error {
	return writeJSON(w, newJSONReport(report, events))
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
