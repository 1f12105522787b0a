package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sdejongh/mediakit/pkg/models"
	"github.com/sdejongh/mediakit/pkg/sizes"
)

func sampleTranscodeReport() *models.TranscodeReport {
	r := &models.TranscodeReport{
		RunInfo:   models.NewRunInfo("transcode video"),
		Kind:      "video",
		SourceDir: "/media/2024-06",
	}
	c := sizes.Compare(8_000_000, 2_000_000)
	r.Files = append(r.Files, models.TranscodedFile{
		Input:   "/media/2024-06/clip.mp4",
		Output:  "/media/2024-06/Compressed/clip.mp4",
		Outcome: models.OutcomeDone,
		Size:    c,
	})
	r.ProcessedCount = 1
	r.Processed = c
	r.Total = c
	r.Finish(models.StatusSuccess)
	return r
}

func TestNew(t *testing.T) {
	tests := []struct {
		format   string
		progress bool
		want     string
		wantErr  bool
	}{
		{"", false, "human", false},
		{"human", false, "human", false},
		// a buffer is never a terminal
		{"human", true, "human", false},
		{"json", false, "json", false},
		{"progress", false, "progress", false},
		{"xml", false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			f, err := New(tt.format, tt.progress, &bytes.Buffer{})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if f.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", f.Name(), tt.want)
			}
		})
	}
}

func TestHumanFormatterTranscodeFlow(t *testing.T) {
	var buf bytes.Buffer
	f := NewHumanFormatter()
	c := sizes.Compare(8_000_000, 2_000_000)

	f.Start(&buf, "Compressing videos", 2)
	f.Progress(Event{Type: EventFileStart, Path: "a.mp4", Index: 1, Total: 2})
	f.Progress(Event{Type: EventFileSkipped, Path: "a.mp4", Message: "File already processed"})
	f.Progress(Event{Type: EventFileStart, Path: "b.mp4", Index: 2, Total: 2})
	f.Progress(Event{Type: EventFileProgress, Path: "b.mp4", Percent: 50, Bytes: 1_000_000})
	f.Progress(Event{Type: EventFileComplete, Path: "b.mp4", Target: "Compressed/b.mp4", Sizes: &c})
	f.Complete(sampleTranscodeReport())

	out := buf.String()
	for _, want := range []string{
		separator,
		"File 1 of 2 (50%)...",
		"Input: a.mp4",
		"File already processed. Skipping",
		"File 2 of 2 (100%)...",
		"Processing:  50% (1.0 MB)",
		"Output: Compressed/b.mp4",
		"Input size:  8.0 MB",
		"Output size: 2.0 MB",
		"Savings:     6.0 MB (25% of original)",
		"Status: success",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestHumanFormatterCatalogEvents(t *testing.T) {
	var buf bytes.Buffer
	f := NewHumanFormatter()
	f.Start(&buf, "Cataloging", 3)
	f.Progress(Event{Type: EventBucket, Target: "2024-06", Total: 2})
	f.Progress(Event{Type: EventFileMoved, Path: "IMG_1.jpg", Target: "2024-06/IMG_1.jpg"})
	f.Progress(Event{Type: EventFileSkipped, Path: "IMG_2.jpg", Target: "2024-06/IMG_2.jpg", Message: "identical"})
	f.Progress(Event{Type: EventFileError, Path: "IMG_3.jpg", Error: errors.New("no date")})

	out := buf.String()
	for _, want := range []string{
		"Cataloging: 3 files",
		"2024-06 (2 files)",
		"IMG_1.jpg -> 2024-06/IMG_1.jpg",
		"IMG_2.jpg skipped (identical): 2024-06/IMG_2.jpg exists",
		"IMG_3.jpg: no date",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestHumanFormatterErrorsInSummary(t *testing.T) {
	var buf bytes.Buffer
	f := NewHumanFormatter()
	f.Start(&buf, "Cataloging", 1)

	r := &models.CatalogReport{RunInfo: models.NewRunInfo("catalog"), SourceDir: "/in", TargetRoot: "/out"}
	r.AddError("/in/x.jpg", "resolve", errors.New("unreadable"))
	r.Unresolved = []string{"/in/x.jpg"}
	r.Finish(models.StatusPartial)
	f.Complete(r)

	out := buf.String()
	if !strings.Contains(out, "Status: partial") {
		t.Errorf("missing status line\n%s", out)
	}
	if !strings.Contains(out, "/in/x.jpg: unreadable") {
		t.Errorf("missing error line\n%s", out)
	}
	if !strings.Contains(out, "Unresolved:") {
		t.Errorf("missing summary label\n%s", out)
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter()
	f.Start(&buf, "Compressing videos", 1)
	f.Progress(Event{Type: EventFileStart, Path: "clip.mp4"})
	f.Progress(Event{Type: EventFileError, Path: "clip.mp4", Error: errors.New("encoder failed")})
	if err := f.Complete(sampleTranscodeReport()); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	var decoded struct {
		Report struct {
			Command string `json:"command"`
			Kind    string `json:"kind"`
			Total   struct {
				Ratio string `json:"ratio"`
			} `json:"total"`
		} `json:"report"`
		Summary map[string]string `json:"summary"`
		Events  []JSONEvent       `json:"events"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if decoded.Report.Command != "transcode video" || decoded.Report.Kind != "video" {
		t.Errorf("unexpected report header: %+v", decoded.Report)
	}
	if decoded.Report.Total.Ratio != "25%" {
		t.Errorf("total ratio = %q, want 25%%", decoded.Report.Total.Ratio)
	}
	if decoded.Summary["Folder"] != "/media/2024-06" {
		t.Errorf("summary folder = %q", decoded.Summary["Folder"])
	}
	if len(decoded.Events) != 1 || decoded.Events[0].Error != "encoder failed" {
		t.Errorf("events = %+v, want the single failure", decoded.Events)
	}
}

func TestJSONFormatterBatch(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter()
	f.Batch()

	for _, dir := range []string{"/media/a", "/media/b"} {
		f.Start(&buf, "Compressing videos", 1)
		r := sampleTranscodeReport()
		r.SourceDir = dir
		if err := f.Complete(r); err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
	}
	if buf.Len() != 0 {
		t.Fatalf("batch mode wrote before Flush: %s", buf.String())
	}
	if err := f.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	dec := json.NewDecoder(&buf)
	var batch struct {
		Reports []struct {
			Summary map[string]string `json:"summary"`
		} `json:"reports"`
	}
	if err := dec.Decode(&batch); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if dec.More() {
		t.Error("expected a single JSON document")
	}
	if len(batch.Reports) != 2 || batch.Reports[1].Summary["Folder"] != "/media/b" {
		t.Errorf("reports = %+v", batch.Reports)
	}

	// nothing left to write
	buf.Reset()
	if err := f.Flush(); err != nil || buf.Len() != 0 {
		t.Errorf("second Flush() wrote %q, %v", buf.String(), err)
	}
}

func TestProgressFormatterNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	f := NewProgressFormatter()
	f.Start(&buf, "Cataloging", 2)
	f.Progress(Event{Type: EventFileStart, Path: "/in/a.jpg"})
	f.Progress(Event{Type: EventFileMoved, Path: "/in/a.jpg"})
	f.Progress(Event{Type: EventFileError, Path: "/in/b.jpg", Error: errors.New("boom")})

	r := &models.PruneReport{RunInfo: models.NewRunInfo("prune"), Root: "/in"}
	r.Finish(models.StatusSuccess)
	if err := f.Complete(r); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(f.failures) != 1 {
		t.Errorf("failures = %d, want 1", len(f.failures))
	}
	if !strings.Contains(buf.String(), "Status: success") {
		t.Errorf("missing summary\n%s", buf.String())
	}
	// finishing twice must not panic
	if err := f.Error(errors.New("late")); err != nil {
		t.Fatal(err)
	}
}

func TestWriteRunReport(t *testing.T) {
	dir := t.TempDir()

	cat := &models.CatalogReport{
		RunInfo:    models.NewRunInfo("catalog"),
		SourceDir:  "/in",
		TargetRoot: "/out",
		Scanned:    3,
		MovedCount: 1,
		Moves: []models.CatalogMove{
			{Source: "/in/a.jpg", Destination: "/out/2024-06/a.jpg", Bucket: "2024-06", DateSource: models.DateOriginal},
		},
		SkippedCount: 2,
		Skips: []models.CatalogSkip{
			{Source: "/in/b.jpg", Destination: "/out/2024-06/b.jpg", Reason: models.SkipIdentical},
			{Source: "/in/c.jpg", Destination: "/out/2024-07/c.jpg", Reason: models.SkipNameClash},
		},
	}
	cat.Finish(models.StatusSuccess)

	t.Run("human", func(t *testing.T) {
		path := filepath.Join(dir, "report.txt")
		if err := WriteRunReport(cat, path, "human"); err != nil {
			t.Fatalf("WriteRunReport() error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		out := string(data)
		for _, want := range []string{
			"catalog report",
			"Moved (1)",
			"/in/a.jpg -> /out/2024-06/a.jpg [original]",
			"Already cataloged (1)",
			"Name clashes (1)",
			"exists: /out/2024-07/c.jpg",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("report missing %q\n%s", want, out)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "report.json")
		if err := WriteRunReport(cat, path, "json"); err != nil {
			t.Fatalf("WriteRunReport() error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("report is not JSON: %v", err)
		}
		if _, ok := decoded["report"]; !ok {
			t.Error("missing report key")
		}
	})

	t.Run("bad path", func(t *testing.T) {
		err := WriteRunReport(cat, filepath.Join(dir, "missing", "r.txt"), "human")
		if err == nil {
			t.Fatal("expected error for missing directory")
		}
	})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.mp4", 20, "short.mp4"},
		{"a-very-long-file-name.mp4", 10, "...ame.mp4"},
		{"abc", 2, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestFormatSizes(t *testing.T) {
	got := FormatSizes(sizes.Compare(1000, 500))
	if got != "1.0 kB -> 500 B (50%)" {
		t.Errorf("FormatSizes() = %q", got)
	}
}
