package metadata

import (
	"context"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// GoExif decodes EXIF in-process. It understands JPEG and TIFF-based raw
// files; videos and PNGs yield a per-file error and fall back to the filesystem.
type GoExif struct{}

// NewGoExif creates the in-process reader
func NewGoExif() *GoExif {
	return &GoExif{}
}

// Name returns the reader name
func (g *GoExif) Name() string {
	return "goexif"
}

// Read decodes each file in turn
func (g *GoExif) Read(ctx context.Context, paths []string) ([]Metadata, error) {
	results := make([]Metadata, len(paths))
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results[i] = g.readOne(p)
	}
	return results, nil
}

func (g *GoExif) readOne(path string) Metadata {
	md := Metadata{Path: path}

	f, err := os.Open(path)
	if err != nil {
		md.Err = err
		return md
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		md.Err = err
		return md
	}

	md.OriginalCaptureTime = exifTime(x, exif.DateTimeOriginal)
	md.CreateTime = exifTime(x, exif.DateTimeDigitized)
	md.ModifyTime = exifTime(x, exif.DateTime)
	return md
}

func exifTime(x *exif.Exif, field exif.FieldName) time.Time {
	tag, err := x.Get(field)
	if err != nil {
		return time.Time{}
	}
	s, err := tag.StringVal()
	if err != nil {
		return time.Time{}
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}
	}
	return t
}
