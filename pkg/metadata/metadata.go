// Package metadata determines when a photo or clip was captured.
//
// Embedded metadata is read through a Reader (exiftool or an in-process EXIF
// decoder). When no usable timestamp is embedded the Resolver falls back to the
// file's creation time on disk.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sdejongh/mediakit/pkg/models"
)

// ErrNoTimestamp means a file carried no usable capture timestamp
var ErrNoTimestamp = errors.New("no capture timestamp in metadata")

// Metadata holds the timestamps a reader extracted from one file
type Metadata struct {
	Path                string
	OriginalCaptureTime time.Time
	CreateTime          time.Time
	ModifyTime          time.Time

	// Err is set when this file could not be read
	Err error
}

// CaptureDate returns the first valid timestamp by priority:
// original capture, then create, then modify
func (m Metadata) CaptureDate() (time.Time, models.DateSource, bool) {
	candidates := []struct {
		t   time.Time
		src models.DateSource
	}{
		{m.OriginalCaptureTime, models.DateOriginal},
		{m.CreateTime, models.DateCreate},
		{m.ModifyTime, models.DateModify},
	}
	for _, c := range candidates {
		if ValidTimestamp(c.t) {
			return c.t, c.src, true
		}
	}
	return time.Time{}, "", false
}

// Reader extracts timestamps from a batch of files.
// The result has one element per path, in the same order. A non-nil error
// means the whole batch failed.
type Reader interface {
	Read(ctx context.Context, paths []string) ([]Metadata, error)
	Name() string
}

// Reader kinds accepted by NewReader
const (
	ReaderAuto     = "auto"
	ReaderExifTool = "exiftool"
	ReaderGoExif   = "goexif"
)

// NewReader builds the reader named by kind. "auto" prefers exiftool when the
// binary can be found and otherwise uses the in-process EXIF decoder.
func NewReader(kind, exiftoolPath string) (Reader, error) {
	if exiftoolPath == "" {
		exiftoolPath = "exiftool"
	}

	switch kind {
	case "", ReaderAuto:
		if bin, err := exec.LookPath(exiftoolPath); err == nil {
			return NewExifTool(bin), nil
		}
		return NewGoExif(), nil
	case ReaderExifTool:
		bin, err := exec.LookPath(exiftoolPath)
		if err != nil {
			return nil, fmt.Errorf("exiftool not found: %w", err)
		}
		return NewExifTool(bin), nil
	case ReaderGoExif:
		return NewGoExif(), nil
	default:
		return nil, fmt.Errorf("unknown metadata reader %q", kind)
	}
}

var timestampLayouts = []string{
	"2006:01:02 15:04:05Z07:00",
	"2006:01:02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

// ParseTimestamp parses an EXIF-style timestamp. Fractional seconds and a
// zone offset are optional; values without a zone are read as local time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(strings.Trim(s, "\x00"))
	if s == "" {
		return time.Time{}, ErrNoTimestamp
	}

	var lastErr error
	for _, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if strings.Contains(layout, "Z07:00") {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q: %w", s, lastErr)
}

// ValidTimestamp rejects zero values and anything at or before the Unix epoch
func ValidTimestamp(t time.Time) bool {
	return !t.IsZero() && t.Unix() > 0
}
