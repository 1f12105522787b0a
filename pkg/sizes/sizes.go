// Package sizes compares file sizes and renders them for humans.
package sizes

import (
	"fmt"
	"math"
	"os"

	"github.com/dustin/go-humanize"
)

// NotApplicable is reported as the ratio when the reference size is zero
const NotApplicable = "N/A"

// Comparison holds two sizes side by side.
// The JSON layout is shared with manifest files written by earlier tools.
type Comparison struct {
	SizeA      uint64 `json:"sizeA"`
	SizeB      uint64 `json:"sizeB"`
	HumanA     string `json:"humanFileSizeA"`
	HumanB     string `json:"humanFileSizeB"`
	Difference string `json:"difference"`
	Ratio      string `json:"ratio"`
}

// Compare builds a comparison of sizeB against sizeA
func Compare(sizeA, sizeB uint64) Comparison {
	c := Comparison{
		SizeA:      sizeA,
		SizeB:      sizeB,
		HumanA:     Human(sizeA),
		HumanB:     Human(sizeB),
		Difference: difference(sizeA, sizeB),
		Ratio:      NotApplicable,
	}
	if pct, ok := ratioPercent(sizeA, sizeB); ok {
		c.Ratio = fmt.Sprintf("%d%%", pct)
	}
	return c
}

// CompareFiles compares the on-disk sizes of two files.
// A missing file counts as zero bytes.
func CompareFiles(pathA, pathB string) (Comparison, error) {
	sizeA, err := fileSize(pathA)
	if err != nil {
		return Comparison{}, err
	}
	sizeB, err := fileSize(pathB)
	if err != nil {
		return Comparison{}, err
	}
	return Compare(sizeA, sizeB), nil
}

// RatioPercent returns round(SizeB/SizeA*100).
// ok is false when SizeA is zero and the ratio is undefined.
func (c Comparison) RatioPercent() (pct uint32, ok bool) {
	return ratioPercent(c.SizeA, c.SizeB)
}

// Human renders a byte count, e.g. "8.2 MB"
func Human(n uint64) string {
	return humanize.Bytes(n)
}

// Tally accumulates input and output sizes across a batch
type Tally struct {
	Files  int
	Input  uint64
	Output uint64
}

// Add records one file pair
func (t *Tally) Add(input, output uint64) {
	t.Files++
	t.Input += input
	t.Output += output
}

// Merge adds another tally into t
func (t *Tally) Merge(other Tally) {
	t.Files += other.Files
	t.Input += other.Input
	t.Output += other.Output
}

// Comparison returns the aggregate comparison
func (t Tally) Comparison() Comparison {
	return Compare(t.Input, t.Output)
}

func ratioPercent(sizeA, sizeB uint64) (uint32, bool) {
	if sizeA == 0 {
		return 0, false
	}
	r := math.Round(float64(sizeB) / float64(sizeA) * 100)
	if r > math.MaxUint32 {
		return math.MaxUint32, true
	}
	return uint32(r), true
}

func difference(sizeA, sizeB uint64) string {
	if sizeB > sizeA {
		return "-" + Human(sizeB-sizeA)
	}
	return Human(sizeA - sizeB)
}

func fileSize(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return uint64(info.Size()), nil
}
