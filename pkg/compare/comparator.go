// Package compare decides whether two files hold the same content.
// The catalog uses it to tell a re-imported photo from a different photo
// that happens to share a name.
package compare

import (
	"context"
	"fmt"

	"github.com/sdejongh/mediakit/pkg/storage"
)

// Result represents the outcome of comparing two files
type Result string

const (
	// Same indicates files are identical
	Same Result = "same"
	// Different indicates files differ
	Different Result = "different"
	// Error indicates comparison failed
	Error Result = "error"
)

// Comparison holds the result of comparing two files
type Comparison struct {
	SourcePath string
	DestPath   string
	Result     Result
	Reason     string
	Error      error
}

// Comparator defines the interface for file comparison algorithms
type Comparator interface {
	// Compare compares two files and returns the result
	Compare(ctx context.Context, source, dest storage.Backend, sourcePath, destPath string) (*Comparison, error)

	// Name returns the name of the comparison method
	Name() string
}

// New returns the comparator for a configured method: "hash" or "size"
func New(method string) (Comparator, error) {
	switch method {
	case "", "hash":
		return NewHashComparator(0), nil
	case "size":
		return NewSizeComparator(), nil
	default:
		return nil, fmt.Errorf("unknown comparison method %q", method)
	}
}
