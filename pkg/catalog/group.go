// Package catalog sorts photos and clips into year-month folders by the date
// they were taken.
package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/sdejongh/mediakit/pkg/metadata"
	"github.com/sdejongh/mediakit/pkg/models"
)

// Bucket is one year-month destination folder and the files assigned to it
type Bucket struct {
	Key   string
	Path  string
	Files []models.MediaFile
}

// Grouping is the result of bucketing a set of resolved files
type Grouping struct {
	// Buckets are sorted by key
	Buckets []Bucket
	// Failures lists the files whose capture date could not be resolved
	Failures []*models.DateResolutionError
}

// BucketKey formats a capture date as YYYY-MM. The year and month are taken
// as recorded, without converting to another zone.
func BucketKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// BucketPath returns the folder for a capture date under targetRoot
func BucketPath(targetRoot string, t time.Time) string {
	return filepath.Join(targetRoot, BucketKey(t))
}

// Group assigns every resolved file to its bucket. Files inside a bucket keep
// input order. Unresolved files are returned as failures.
func Group(resolutions []metadata.Resolution, targetRoot string) *Grouping {
	g := &Grouping{}
	index := make(map[string]int)

	for _, r := range resolutions {
		if r.Err != nil || !r.File.HasCaptureDate() {
			g.Failures = append(g.Failures, asResolutionError(r))
			continue
		}

		key := BucketKey(r.File.CaptureDate)
		i, ok := index[key]
		if !ok {
			i = len(g.Buckets)
			index[key] = i
			g.Buckets = append(g.Buckets, Bucket{Key: key, Path: filepath.Join(targetRoot, key)})
		}
		g.Buckets[i].Files = append(g.Buckets[i].Files, r.File)
	}

	sort.SliceStable(g.Buckets, func(i, j int) bool { return g.Buckets[i].Key < g.Buckets[j].Key })
	return g
}

// Map returns the grouping as bucket path to files
func (g *Grouping) Map() map[string][]models.MediaFile {
	m := make(map[string][]models.MediaFile, len(g.Buckets))
	for _, b := range g.Buckets {
		m[b.Path] = b.Files
	}
	return m
}

// FileCount returns the number of grouped files
func (g *Grouping) FileCount() int {
	n := 0
	for _, b := range g.Buckets {
		n += len(b.Files)
	}
	return n
}

func asResolutionError(r metadata.Resolution) *models.DateResolutionError {
	var dre *models.DateResolutionError
	if errors.As(r.Err, &dre) {
		return dre
	}
	err := r.Err
	if err == nil {
		err = metadata.ErrNoTimestamp
	}
	return &models.DateResolutionError{Path: r.File.Path, Err: err}
}
