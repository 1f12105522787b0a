// Package manifest persists the record of completed transcodes for a folder.
//
// A manifest is a JSON array of entries keyed by input path. It is rewritten
// atomically after every completed file so an interrupted batch can resume.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sdejongh/mediakit/pkg/models"
)

const (
	// VideoFileName is the manifest used by video transcodes
	VideoFileName = "compress-video-manifest.json"
	// AudioFileName is the manifest used by audio transcodes
	AudioFileName = "compress-audio-manifest.json"

	indent = "    "
)

// Manifest is the in-memory view of one manifest file.
// It has a single writer; it is not safe for concurrent use.
type Manifest struct {
	path    string
	entries []models.ManifestEntry
	index   map[string]int

	// corrupt is set when the file on disk could not be parsed and has not
	// been preserved yet
	corrupt bool
}

// Open loads the manifest at path.
// A missing or empty file yields an empty manifest. Content that cannot be
// parsed yields a usable empty manifest together with a
// *models.ManifestCorruptionError.
func Open(path string) (*Manifest, error) {
	m := &Manifest{
		path:    path,
		entries: make([]models.ManifestEntry, 0),
		index:   make(map[string]int),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, &models.IOError{Op: "read manifest", Path: path, Err: err}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}

	var entries []models.ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		m.corrupt = true
		return m, &models.ManifestCorruptionError{Path: path, Err: err}
	}

	for _, e := range entries {
		m.put(e)
	}
	return m, nil
}

// Path returns the manifest file location
func (m *Manifest) Path() string {
	return m.path
}

// Len returns the number of recorded inputs
func (m *Manifest) Len() int {
	return len(m.entries)
}

// Exists reports whether input has been recorded
func (m *Manifest) Exists(input string) bool {
	_, ok := m.index[input]
	return ok
}

// Find returns the entry recorded for input
func (m *Manifest) Find(input string) (models.ManifestEntry, bool) {
	i, ok := m.index[input]
	if !ok {
		return models.ManifestEntry{}, false
	}
	return m.entries[i], true
}

// Entries returns a copy of all entries in insertion order
func (m *Manifest) Entries() []models.ManifestEntry {
	out := make([]models.ManifestEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Update inserts or replaces the entry for entry.File.Input and persists the
// whole manifest. On a write failure the file on disk keeps its previous content.
func (m *Manifest) Update(entry models.ManifestEntry) error {
	if entry.File.Input == "" {
		return &models.ValidationError{Field: "file.input", Message: "input path is required"}
	}

	if m.corrupt {
		if err := m.preserveCorrupt(); err != nil {
			return err
		}
	}

	prev, hadPrev := m.Find(entry.File.Input)
	m.put(entry)

	if err := m.save(); err != nil {
		if hadPrev {
			m.put(prev)
		} else {
			m.drop(entry.File.Input)
		}
		return err
	}
	return nil
}

func (m *Manifest) put(e models.ManifestEntry) {
	if i, ok := m.index[e.File.Input]; ok {
		m.entries[i] = e
		return
	}
	m.index[e.File.Input] = len(m.entries)
	m.entries = append(m.entries, e)
}

func (m *Manifest) drop(input string) {
	i, ok := m.index[input]
	if !ok {
		return
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	delete(m.index, input)
	for j := i; j < len(m.entries); j++ {
		m.index[m.entries[j].File.Input] = j
	}
}

// save writes the manifest atomically using a temp file in the same directory
func (m *Manifest) save() error {
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &models.IOError{Op: "create manifest directory", Path: dir, Err: err}
	}

	data, err := json.MarshalIndent(m.entries, "", indent)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(m.path)+".tmp-*")
	if err != nil {
		return &models.IOError{Op: "write manifest", Path: m.path, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &models.IOError{Op: "write manifest", Path: m.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &models.IOError{Op: "write manifest", Path: m.path, Err: err}
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return &models.IOError{Op: "write manifest", Path: m.path, Err: err}
	}

	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return &models.IOError{Op: "finalize manifest", Path: m.path, Err: err}
	}
	return nil
}

// preserveCorrupt moves an unparseable manifest aside before it gets overwritten
func (m *Manifest) preserveCorrupt() error {
	backup := CorruptBackupPath(m.path, time.Now())
	if err := os.Rename(m.path, backup); err != nil && !os.IsNotExist(err) {
		return &models.IOError{Op: "preserve corrupt manifest", Path: m.path, Err: err}
	}
	m.corrupt = false
	return nil
}

// CorruptBackupPath is where a corrupt manifest is moved before the first rewrite
func CorruptBackupPath(path string, at time.Time) string {
	return fmt.Sprintf("%s.corrupt-%d", path, at.Unix())
}
