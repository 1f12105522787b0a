package models

import (
	"path/filepath"
	"time"
)

// DateSource tells where a capture date came from
type DateSource string

const (
	// DateOriginal is the EXIF/QuickTime original capture time
	DateOriginal DateSource = "original"
	// DateCreate is the container creation time
	DateCreate DateSource = "create"
	// DateModify is the metadata modification time
	DateModify DateSource = "modify"
	// DateFilesystem is the file's creation or change time on disk
	DateFilesystem DateSource = "filesystem"
)

// MediaFile is a photo, clip or audio file on disk
type MediaFile struct {
	Path        string
	Size        int64
	ModTime     time.Time
	CaptureDate time.Time
	DateSource  DateSource
}

// Name returns the base name of the file
func (f MediaFile) Name() string {
	return filepath.Base(f.Path)
}

// HasCaptureDate reports whether the capture date was resolved
func (f MediaFile) HasCaptureDate() bool {
	return !f.CaptureDate.IsZero()
}
