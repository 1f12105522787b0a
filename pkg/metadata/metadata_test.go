package metadata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sdejongh/mediakit/pkg/models"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2023:07:14 10:20:30", time.Date(2023, 7, 14, 10, 20, 30, 0, time.Local), false},
		{"2023:07:14 10:20:30.45", time.Date(2023, 7, 14, 10, 20, 30, 450000000, time.Local), false},
		{"2023:07:14 10:20:30+02:00", time.Date(2023, 7, 14, 8, 20, 30, 0, time.UTC), false},
		{"2023:07:14 10:20:30Z", time.Date(2023, 7, 14, 10, 20, 30, 0, time.UTC), false},
		{"2023:07:14 10:20:30\x00", time.Date(2023, 7, 14, 10, 20, 30, 0, time.Local), false},
		{"2023-07-14T10:20:30Z", time.Date(2023, 7, 14, 10, 20, 30, 0, time.UTC), false},
		{"0000:00:00 00:00:00", time.Time{}, true},
		{"", time.Time{}, true},
		{"yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidTimestamp(t *testing.T) {
	if ValidTimestamp(time.Time{}) {
		t.Error("zero time should be invalid")
	}
	if ValidTimestamp(time.Unix(0, 0)) {
		t.Error("epoch should be invalid")
	}
	if ValidTimestamp(time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("pre-epoch should be invalid")
	}
	if !ValidTimestamp(time.Date(2023, 7, 14, 0, 0, 0, 0, time.UTC)) {
		t.Error("2023 should be valid")
	}
}

func TestMetadataCaptureDate(t *testing.T) {
	orig := time.Date(2023, 7, 14, 10, 0, 0, 0, time.UTC)
	create := time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC)
	modify := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		md      Metadata
		want    time.Time
		wantSrc models.DateSource
		wantOK  bool
	}{
		{"all present", Metadata{OriginalCaptureTime: orig, CreateTime: create, ModifyTime: modify}, orig, models.DateOriginal, true},
		{"create wins over modify", Metadata{CreateTime: create, ModifyTime: modify}, create, models.DateCreate, true},
		{"modify only", Metadata{ModifyTime: modify}, modify, models.DateModify, true},
		{"invalid original skipped", Metadata{OriginalCaptureTime: time.Unix(0, 0), CreateTime: create}, create, models.DateCreate, true},
		{"none", Metadata{}, time.Time{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, src, ok := tt.md.CaptureDate()
			if ok != tt.wantOK || src != tt.wantSrc || !got.Equal(tt.want) {
				t.Errorf("CaptureDate() = %v, %s, %v; want %v, %s, %v", got, src, ok, tt.want, tt.wantSrc, tt.wantOK)
			}
		})
	}
}

func TestParseExifToolOutput(t *testing.T) {
	out := `[{
  "SourceFile": "/photos/a.jpg",
  "DateTimeOriginal": "2023:07:14 10:20:30",
  "CreateDate": "2023:07:14 10:20:30",
  "ModifyDate": "2024:01:01 00:00:00"
},
{
  "SourceFile": "/photos/b.mp4",
  "CreateDate": "0000:00:00 00:00:00",
  "ModifyDate": "2022:12:24 18:00:00+01:00"
}]`

	paths := []string{"/photos/a.jpg", "/photos/b.mp4", "/photos/c.png"}
	got, err := parseExifToolOutput([]byte(out), paths)
	if err != nil {
		t.Fatalf("parseExifToolOutput() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	if d, src, _ := got[0].CaptureDate(); src != models.DateOriginal || d.Month() != time.July {
		t.Errorf("a.jpg = %v %s", d, src)
	}
	if d, src, _ := got[1].CaptureDate(); src != models.DateModify || !d.Equal(time.Date(2022, 12, 24, 17, 0, 0, 0, time.UTC)) {
		t.Errorf("b.mp4 = %v %s", d, src)
	}
	if !errors.Is(got[2].Err, errNotInOutput) {
		t.Errorf("c.png Err = %v, want errNotInOutput", got[2].Err)
	}
	if got[2].Path != "/photos/c.png" {
		t.Errorf("Path = %s", got[2].Path)
	}

	if _, err := parseExifToolOutput([]byte(""), paths); err == nil {
		t.Error("empty output should fail")
	}
	if _, err := parseExifToolOutput([]byte("Error: bad"), paths); err == nil {
		t.Error("non-JSON output should fail")
	}
}

func TestExifToolArgs(t *testing.T) {
	args := NewExifTool("").Args([]string{"/p/a.jpg", "-odd.jpg"})
	joined := strings.Join(args, " ")
	if !strings.HasPrefix(joined, "-json -q -q") {
		t.Errorf("args = %v", args)
	}
	if args[len(args)-2] != "/p/a.jpg" {
		t.Errorf("args = %v", args)
	}
	if !strings.HasSuffix(args[len(args)-1], "-odd.jpg") || strings.HasPrefix(args[len(args)-1], "-") {
		t.Errorf("dash-prefixed file not protected: %v", args)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "exiftool")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExifToolRead_PartialSuccess(t *testing.T) {
	bin := writeScript(t, `echo '[{"SourceFile":"/x/a.jpg","DateTimeOriginal":"2021:05:06 07:08:09"}]'
echo 'Error: File not found - /x/missing.jpg' >&2
exit 1
`)

	got, err := NewExifTool(bin).Read(context.Background(), []string{"/x/a.jpg", "/x/missing.jpg"})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got[0].OriginalCaptureTime.Year() != 2021 {
		t.Errorf("a.jpg = %+v", got[0])
	}
	if got[1].Err == nil {
		t.Error("missing.jpg should carry a per-file error")
	}
}

func TestExifToolRead_Failure(t *testing.T) {
	bin := writeScript(t, "echo 'boom' >&2\nexit 2\n")

	_, err := NewExifTool(bin).Read(context.Background(), []string{"/x/a.jpg", "/x/b.jpg"})
	var procErr *models.ExternalProcessError
	if !errors.As(err, &procErr) {
		t.Fatalf("Read() error = %v, want ExternalProcessError", err)
	}
	if procErr.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", procErr.ExitCode)
	}
	if !strings.Contains(procErr.Stderr, "boom") {
		t.Errorf("Stderr = %q", procErr.Stderr)
	}
	if !strings.Contains(procErr.Path, "/x/a.jpg") {
		t.Errorf("Path = %q", procErr.Path)
	}
}

func TestNewReader(t *testing.T) {
	r, err := NewReader(ReaderGoExif, "")
	if err != nil || r.Name() != "goexif" {
		t.Errorf("NewReader(goexif) = %v, %v", r, err)
	}

	if _, err := NewReader(ReaderExifTool, "/definitely/not/here/exiftool"); err == nil {
		t.Error("NewReader(exiftool) should fail when the binary is missing")
	}

	r, err = NewReader(ReaderAuto, "/definitely/not/here/exiftool")
	if err != nil || r.Name() != "goexif" {
		t.Errorf("NewReader(auto) without exiftool = %v, %v; want goexif", r, err)
	}

	if _, err := NewReader("magic", ""); err == nil {
		t.Error("unknown reader kind should fail")
	}
}

func TestGoExif_NonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := NewGoExif().Read(context.Background(), []string{path, filepath.Join(t.TempDir(), "missing.jpg")})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got[0].Err == nil || got[1].Err == nil {
		t.Errorf("expected per-file errors, got %+v", got)
	}
}

// fakeReader returns canned metadata keyed by base name
type fakeReader struct {
	mu      sync.Mutex
	dates   map[string]time.Time
	fail    bool
	calls   int32
	batches [][]string
}

func (f *fakeReader) Name() string { return "fake" }

func (f *fakeReader) Read(ctx context.Context, paths []string) ([]Metadata, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.batches = append(f.batches, append([]string(nil), paths...))
	f.mu.Unlock()

	if f.fail {
		return nil, &models.ExternalProcessError{Tool: "fake", Path: paths[0], ExitCode: 1}
	}
	out := make([]Metadata, len(paths))
	for i, p := range paths {
		out[i].Path = p
		if d, ok := f.dates[filepath.Base(p)]; ok {
			out[i].OriginalCaptureTime = d
		} else {
			out[i].Err = errNotInOutput
		}
	}
	return out, nil
}

func makeFiles(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
		if err := os.WriteFile(paths[i], []byte(n), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return paths
}

func TestResolver_PriorityAndFallback(t *testing.T) {
	paths := makeFiles(t, "a.jpg", "b.png")
	shot := time.Date(2023, 7, 14, 12, 0, 0, 0, time.UTC)
	fsTime := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)

	r := NewResolver(&fakeReader{dates: map[string]time.Time{"a.jpg": shot}}, nil, ResolverConfig{Workers: 2, ChunkSize: 10})
	r.creationTime = func(os.FileInfo) time.Time { return fsTime }

	res, err := r.ResolveAll(context.Background(), paths)
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}

	if res[0].Err != nil || !res[0].File.CaptureDate.Equal(shot) || res[0].File.DateSource != models.DateOriginal {
		t.Errorf("a.jpg = %+v", res[0])
	}
	if res[1].Err != nil || !res[1].File.CaptureDate.Equal(fsTime) || res[1].File.DateSource != models.DateFilesystem {
		t.Errorf("b.png = %+v", res[1])
	}
	if res[0].File.Size != int64(len("a.jpg")) {
		t.Errorf("Size = %d", res[0].File.Size)
	}
}

func TestResolver_ReaderFailureFallsBack(t *testing.T) {
	paths := makeFiles(t, "a.jpg", "b.jpg", "c.jpg")
	fsTime := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	r := NewResolver(&fakeReader{fail: true}, nil, ResolverConfig{Workers: 1, ChunkSize: 2})
	r.creationTime = func(os.FileInfo) time.Time { return fsTime }

	res, err := r.ResolveAll(context.Background(), paths)
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}
	for i, rr := range res {
		if rr.Err != nil || rr.File.DateSource != models.DateFilesystem {
			t.Errorf("res[%d] = %+v, want filesystem fallback", i, rr)
		}
	}
}

func TestResolver_UnresolvableDate(t *testing.T) {
	paths := makeFiles(t, "a.jpg")
	missing := filepath.Join(filepath.Dir(paths[0]), "gone.jpg")

	r := NewResolver(&fakeReader{}, nil, ResolverConfig{})
	r.creationTime = func(os.FileInfo) time.Time { return time.Unix(0, 0) }

	res, err := r.ResolveAll(context.Background(), []string{paths[0], missing})
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}
	for i, rr := range res {
		var dre *models.DateResolutionError
		if !errors.As(rr.Err, &dre) {
			t.Errorf("res[%d].Err = %v, want DateResolutionError", i, rr.Err)
			continue
		}
		if dre.Path != rr.File.Path {
			t.Errorf("error path %s != file path %s", dre.Path, rr.File.Path)
		}
	}
}

func TestResolver_ChunksAndOrder(t *testing.T) {
	names := make([]string, 23)
	dates := make(map[string]time.Time)
	for i := range names {
		names[i] = "IMG_" + string(rune('A'+i)) + ".jpg"
		dates[names[i]] = time.Date(2020, time.Month(i%12+1), 1, 0, 0, 0, 0, time.UTC)
	}
	paths := makeFiles(t, names...)

	reader := &fakeReader{dates: dates}
	r := NewResolver(reader, nil, ResolverConfig{Workers: 3, ChunkSize: 5})

	res, err := r.ResolveAll(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&reader.calls); got != 5 {
		t.Errorf("reader calls = %d, want 5", got)
	}
	for _, b := range reader.batches {
		if len(b) > 5 {
			t.Errorf("batch of %d exceeds chunk size", len(b))
		}
	}
	for i, rr := range res {
		if rr.File.Path != paths[i] {
			t.Fatalf("res[%d] = %s, want %s", i, rr.File.Path, paths[i])
		}
		if !rr.File.CaptureDate.Equal(dates[names[i]]) {
			t.Errorf("res[%d] date = %v", i, rr.File.CaptureDate)
		}
	}
}

func TestResolver_Cancelled(t *testing.T) {
	paths := makeFiles(t, "a.jpg")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewResolver(&fakeReader{}, nil, ResolverConfig{}).ResolveAll(ctx, paths); !errors.Is(err, context.Canceled) {
		t.Errorf("ResolveAll() error = %v, want context.Canceled", err)
	}
}

func TestResolver_Resolve(t *testing.T) {
	paths := makeFiles(t, "a.jpg")
	r := NewResolver(nil, nil, ResolverConfig{})

	res, err := r.Resolve(context.Background(), paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if res.Err != nil || res.File.DateSource != models.DateFilesystem {
		t.Errorf("Resolve() = %+v", res)
	}
}
