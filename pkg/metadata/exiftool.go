package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sdejongh/mediakit/pkg/models"
)

var errNotInOutput = errors.New("file missing from exiftool output")

// ExifTool reads timestamps by running the exiftool binary once per batch
type ExifTool struct {
	Binary string
}

// NewExifTool creates a reader for the given exiftool binary
func NewExifTool(binary string) *ExifTool {
	if binary == "" {
		binary = "exiftool"
	}
	return &ExifTool{Binary: binary}
}

// Name returns the reader name
func (e *ExifTool) Name() string {
	return "exiftool"
}

// Args returns the exiftool arguments for a batch
func (e *ExifTool) Args(paths []string) []string {
	args := []string{
		"-json", "-q", "-q",
		"-api", "QuickTimeUTC=1",
		"-DateTimeOriginal", "-CreateDate", "-ModifyDate",
	}
	for _, p := range paths {
		args = append(args, fileArg(p))
	}
	return args
}

// fileArg keeps a relative path with a leading dash from being read as an option
func fileArg(p string) string {
	if strings.HasPrefix(p, "-") {
		return "." + string(filepath.Separator) + p
	}
	return p
}

// Read runs exiftool on paths. exiftool exits non-zero when only some files
// fail; as long as it printed JSON the batch is treated as a partial success.
func (e *ExifTool) Read(ctx context.Context, paths []string) ([]Metadata, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	cmd := exec.CommandContext(ctx, e.Binary, e.Args(paths)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	results, parseErr := parseExifToolOutput(stdout.Bytes(), paths)
	if parseErr == nil {
		return results, nil
	}

	procErr := &models.ExternalProcessError{
		Tool:   "exiftool",
		Path:   describeBatch(paths),
		Stderr: stderr.String(),
		Err:    parseErr,
	}
	if runErr != nil {
		procErr.Err = runErr
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			procErr.ExitCode = exitErr.ExitCode()
		}
	}
	return nil, procErr
}

// parseExifToolOutput maps exiftool's JSON array back onto the requested paths
func parseExifToolOutput(data []byte, paths []string) ([]Metadata, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("no output")
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse exiftool JSON: %w", err)
	}

	byPath := make(map[string]map[string]any, len(records))
	for _, rec := range records {
		src, _ := rec["SourceFile"].(string)
		if src != "" {
			byPath[filepath.ToSlash(src)] = rec
		}
	}

	results := make([]Metadata, len(paths))
	for i, p := range paths {
		results[i].Path = p
		rec, ok := byPath[filepath.ToSlash(fileArg(p))]
		if !ok {
			results[i].Err = errNotInOutput
			continue
		}
		results[i].OriginalCaptureTime = tagTime(rec, "DateTimeOriginal")
		results[i].CreateTime = tagTime(rec, "CreateDate")
		results[i].ModifyTime = tagTime(rec, "ModifyDate")
	}
	return results, nil
}

// tagTime returns the parsed tag value, or the zero time when absent or malformed
func tagTime(rec map[string]any, tag string) time.Time {
	s, ok := rec[tag].(string)
	if !ok {
		return time.Time{}
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func describeBatch(paths []string) string {
	switch len(paths) {
	case 0:
		return ""
	case 1:
		return paths[0]
	}
	return fmt.Sprintf("%s (+%d more)", paths[0], len(paths)-1)
}

// String shows the command line, for debug logs
func (e *ExifTool) String() string {
	return strings.Join(append([]string{e.Binary}, e.Args([]string{"<files>"})...), " ")
}
