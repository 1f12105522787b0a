package compare

import (
	"context"
	"fmt"

	"github.com/sdejongh/mediakit/pkg/storage"
)

// SizeComparator treats files of equal size as the same file.
// It never reads content, which matters on slow card readers.
type SizeComparator struct{}

// NewSizeComparator creates a new size comparator
func NewSizeComparator() *SizeComparator {
	return &SizeComparator{}
}

// Compare compares two files by size
func (c *SizeComparator) Compare(ctx context.Context, source, dest storage.Backend, sourcePath, destPath string) (*Comparison, error) {
	cmp := &Comparison{SourcePath: sourcePath, DestPath: destPath}

	sourceInfo, err := source.Stat(ctx, sourcePath)
	if err != nil {
		cmp.Result, cmp.Error = Error, err
		return cmp, fmt.Errorf("failed to stat source file: %w", err)
	}
	destInfo, err := dest.Stat(ctx, destPath)
	if err != nil {
		cmp.Result, cmp.Error = Error, err
		return cmp, fmt.Errorf("failed to stat destination file: %w", err)
	}

	if sourceInfo.Size != destInfo.Size {
		cmp.Result = Different
		cmp.Reason = "file sizes differ"
		return cmp, nil
	}

	cmp.Result = Same
	cmp.Reason = "sizes match"
	return cmp, nil
}

// Name returns the comparator name
func (c *SizeComparator) Name() string {
	return "size"
}
