package models

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// IOError is a filesystem failure on a specific path
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// DateResolutionError means no valid capture date could be determined for a file,
// including the filesystem fallback
type DateResolutionError struct {
	Path string
	Err  error
}

func (e *DateResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve capture date for %s: %v", e.Path, e.Err)
}

func (e *DateResolutionError) Unwrap() error { return e.Err }

// ExternalProcessError is a failed invocation of an external tool (ffmpeg, exiftool, adb)
type ExternalProcessError struct {
	Tool     string
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExternalProcessError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed for %s", e.Tool, e.Path)
	if e.ExitCode != 0 {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		fmt.Fprintf(&b, "\n%s", tail)
	}
	return b.String()
}

func (e *ExternalProcessError) Unwrap() error { return e.Err }

// ManifestCorruptionError reports a manifest file that exists but cannot be parsed.
// It is recoverable: the manifest is usable and starts empty.
type ManifestCorruptionError struct {
	Path string
	Err  error
}

func (e *ManifestCorruptionError) Error() string {
	return fmt.Sprintf("manifest %s is corrupt: %v", e.Path, e.Err)
}

func (e *ManifestCorruptionError) Unwrap() error { return e.Err }
