package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sdejongh/mediakit/pkg/sizes"
)

// RunStatus represents the overall result of a command
type RunStatus string

const (
	// StatusSuccess indicates all operations completed successfully
	StatusSuccess RunStatus = "success"
	// StatusPartial indicates the run finished but some files could not be handled
	StatusPartial RunStatus = "partial"
	// StatusFailed indicates the run stopped on an error
	StatusFailed RunStatus = "failed"
	// StatusCancelled indicates the run was interrupted
	StatusCancelled RunStatus = "cancelled"
)

// ExitCode returns the appropriate exit code for the run status
func (s RunStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}

// RunError represents an error attached to a file during a run
type RunError struct {
	FilePath  string    `json:"path"`
	Operation string    `json:"operation"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// RunInfo is the part shared by every report
type RunInfo struct {
	RunID     string        `json:"run_id"`
	Command   string        `json:"command"`
	DryRun    bool          `json:"dry_run,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration_ns"`
	Status    RunStatus     `json:"status"`
	Errors    []RunError    `json:"errors,omitempty"`
}

// NewRunInfo starts a run for the named command
func NewRunInfo(command string) RunInfo {
	return RunInfo{
		RunID:     uuid.New().String(),
		Command:   command,
		StartTime: time.Now(),
		Status:    StatusSuccess,
	}
}

// Info returns the shared run information
func (r *RunInfo) Info() *RunInfo { return r }

// AddError records a per-file error
func (r *RunInfo) AddError(path, op string, err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, RunError{
		FilePath:  path,
		Operation: op,
		Error:     err.Error(),
		Timestamp: time.Now(),
	})
}

// Finish stamps the end time and status
func (r *RunInfo) Finish(status RunStatus) {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.Status = status
}

// SummaryLine is one label/value pair of a human summary
type SummaryLine struct {
	Label string
	Value string
}

// Report is implemented by every run report
type Report interface {
	Info() *RunInfo
	Summary() []SummaryLine
}

// Outcome is the terminal state of a file in a transcode batch
type Outcome string

const (
	// OutcomeDone means the file was transcoded and recorded
	OutcomeDone Outcome = "done"
	// OutcomeAlreadyDone means the manifest already had the file
	OutcomeAlreadyDone Outcome = "already_done"
	// OutcomeFailed means the encoder failed on the file
	OutcomeFailed Outcome = "failed"
)

// TranscodedFile is one file of a transcode batch
type TranscodedFile struct {
	Input   string           `json:"input"`
	Output  string           `json:"output"`
	Outcome Outcome          `json:"outcome"`
	Size    sizes.Comparison `json:"size"`
}

// TranscodeReport summarizes one transcode batch over a source folder
type TranscodeReport struct {
	RunInfo
	Kind           string           `json:"kind"`
	SourceDir      string           `json:"source_dir"`
	Files          []TranscodedFile `json:"files"`
	ProcessedCount int              `json:"processed_count"`
	SkippedCount   int              `json:"skipped_count"`
	Processed      sizes.Comparison `json:"processed"`
	Skipped        sizes.Comparison `json:"skipped"`
	Total          sizes.Comparison `json:"total"`
}

// Summary implements Report
func (r *TranscodeReport) Summary() []SummaryLine {
	return []SummaryLine{
		{"Folder", r.SourceDir},
		{"Processed", fmt.Sprintf("%d (%s -> %s, %s)", r.ProcessedCount, r.Processed.HumanA, r.Processed.HumanB, r.Processed.Ratio)},
		{"Skipped", fmt.Sprintf("%d (%s -> %s, %s)", r.SkippedCount, r.Skipped.HumanA, r.Skipped.HumanB, r.Skipped.Ratio)},
		{"Total", fmt.Sprintf("%s -> %s (savings %s, %s)", r.Total.HumanA, r.Total.HumanB, r.Total.Difference, r.Total.Ratio)},
	}
}

// SkipReason explains why the catalog left a file in place
type SkipReason string

const (
	// SkipIdentical means the destination already holds the same content
	SkipIdentical SkipReason = "identical"
	// SkipNameClash means a different file already uses the destination name
	SkipNameClash SkipReason = "name-clash"
)

// CatalogMove is a file placed into a date bucket
type CatalogMove struct {
	Source      string     `json:"source"`
	Destination string     `json:"destination"`
	Bucket      string     `json:"bucket"`
	DateSource  DateSource `json:"date_source"`
}

// CatalogSkip is a file left in place because its destination exists
type CatalogSkip struct {
	Source      string     `json:"source"`
	Destination string     `json:"destination"`
	Reason      SkipReason `json:"reason"`
}

// CatalogReport summarizes a catalog run
type CatalogReport struct {
	RunInfo
	SourceDir    string        `json:"source_dir"`
	TargetRoot   string        `json:"target_root"`
	Scanned      int           `json:"scanned"`
	MovedCount   int           `json:"moved_count"`
	SkippedCount int           `json:"skipped_count"`
	Moves        []CatalogMove `json:"moves,omitempty"`
	Skips        []CatalogSkip `json:"skips,omitempty"`
	Unresolved   []string      `json:"unresolved,omitempty"`
}

// Summary implements Report
func (r *CatalogReport) Summary() []SummaryLine {
	moved := "Moved"
	if r.DryRun {
		moved = "Would move"
	}
	return []SummaryLine{
		{"Source", r.SourceDir},
		{"Target", r.TargetRoot},
		{"Scanned", strconv.Itoa(r.Scanned)},
		{moved, strconv.Itoa(r.MovedCount)},
		{"Skipped", strconv.Itoa(r.SkippedCount)},
		{"Unresolved", strconv.Itoa(len(r.Unresolved))},
	}
}

// DedupeReport summarizes a keep-raw run
type DedupeReport struct {
	RunInfo
	ImagesDir  string   `json:"images_dir"`
	Duplicates []string `json:"duplicates,omitempty"`
	Trashed    []string `json:"trashed,omitempty"`
	Purged     int      `json:"purged"`
}

// Summary implements Report
func (r *DedupeReport) Summary() []SummaryLine {
	return []SummaryLine{
		{"Images", r.ImagesDir},
		{"JPEG duplicates moved", strconv.Itoa(len(r.Duplicates))},
		{"Trashed files moved", strconv.Itoa(len(r.Trashed))},
		{"Purged", strconv.Itoa(r.Purged)},
	}
}

// CleanupReport summarizes removal of already transcoded originals
type CleanupReport struct {
	RunInfo
	Kind      string   `json:"kind"`
	SourceDir string   `json:"source_dir"`
	TrashDir  string   `json:"trash_dir,omitempty"`
	Files     []string `json:"files,omitempty"`
	Bytes     uint64   `json:"bytes"`
	Removed   int      `json:"removed"`
}

// Summary implements Report
func (r *CleanupReport) Summary() []SummaryLine {
	lines := []SummaryLine{
		{"Folder", r.SourceDir},
		{"Originals found", fmt.Sprintf("%d (%s)", len(r.Files), sizes.Human(r.Bytes))},
		{"Removed", strconv.Itoa(r.Removed)},
	}
	if r.TrashDir != "" {
		lines = append(lines, SummaryLine{"Trash", r.TrashDir})
	}
	return lines
}

// PruneReport summarizes an empty-folder prune
type PruneReport struct {
	RunInfo
	Root    string   `json:"root"`
	Removed []string `json:"removed,omitempty"`
}

// Summary implements Report
func (r *PruneReport) Summary() []SummaryLine {
	label := "Removed folders"
	if r.DryRun {
		label = "Empty folders"
	}
	return []SummaryLine{
		{"Root", r.Root},
		{label, strconv.Itoa(len(r.Removed))},
	}
}

// PulledDir is one remote folder transferred from a device
type PulledDir struct {
	Remote  string `json:"remote"`
	Files   int    `json:"files"`
	Missing bool   `json:"missing,omitempty"`
	Removed bool   `json:"removed,omitempty"`
}

// PullReport summarizes a device pull
type PullReport struct {
	RunInfo
	Device    string      `json:"device"`
	Serial    string      `json:"serial"`
	TargetDir string      `json:"target_dir"`
	Dirs      []PulledDir `json:"dirs"`
}

// Summary implements Report
func (r *PullReport) Summary() []SummaryLine {
	files := 0
	for _, d := range r.Dirs {
		files += d.Files
	}
	return []SummaryLine{
		{"Device", fmt.Sprintf("%s (%s)", r.Device, r.Serial)},
		{"Target", r.TargetDir},
		{"Folders", strconv.Itoa(len(r.Dirs))},
		{"Files", strconv.Itoa(files)},
	}
}
