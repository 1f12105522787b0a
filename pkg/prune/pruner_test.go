package prune

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sdejongh/mediakit/pkg/models"
	"github.com/sdejongh/mediakit/pkg/storage"
)

func setupTree(t *testing.T, dirs []string, files []string) (string, *storage.Local) {
	t.Helper()
	root := t.TempDir()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0755); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		path := filepath.Join(root, f)
		os.MkdirAll(filepath.Dir(path), 0755)
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	backend, err := storage.NewLocal(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, backend
}

func TestPruner_Prune(t *testing.T) {
	tests := []struct {
		name    string
		dirs    []string
		files   []string
		removed []string
		kept    []string
	}{
		{
			name:    "nested empty chain",
			dirs:    []string{"a/b/c"},
			removed: []string{"a/b/c", "a/b", "a"},
		},
		{
			name:    "file keeps its ancestors",
			dirs:    []string{"2024-01/empty", "2024-02"},
			files:   []string{"2024-01/img.jpg"},
			removed: []string{"2024-02", "2024-01/empty"},
			kept:    []string{"2024-01"},
		},
		{
			name:    "hidden file counts as content",
			files:   []string{"x/.gitignore"},
			kept:    []string{"x"},
			removed: nil,
		},
		{
			name: "nothing to prune",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, backend := setupTree(t, tt.dirs, tt.files)
			report, err := NewPruner(backend, nil, nil).Prune(context.Background(), root, false)
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if len(report.Removed) != len(tt.removed) {
				t.Errorf("removed %v, want %d folders", report.Removed, len(tt.removed))
			}
			for _, d := range tt.removed {
				if _, err := os.Stat(filepath.Join(root, d)); !os.IsNotExist(err) {
					t.Errorf("%s should have been removed", d)
				}
			}
			for _, d := range tt.kept {
				if _, err := os.Stat(filepath.Join(root, d)); err != nil {
					t.Errorf("%s should be kept: %v", d, err)
				}
			}
			if _, err := os.Stat(root); err != nil {
				t.Error("root must never be removed")
			}
		})
	}
}

func TestPruner_DryRun(t *testing.T) {
	root, backend := setupTree(t, []string{"a/b", "c"}, []string{"c/f.txt"})

	report, err := NewPruner(backend, nil, nil).Prune(context.Background(), root, true)
	if err != nil {
		t.Fatal(err)
	}
	if !report.DryRun {
		t.Error("report should be flagged as dry run")
	}
	// a/b is empty, and a becomes empty once a/b would go
	if len(report.Removed) != 2 {
		t.Errorf("removed = %v, want a/b and a", report.Removed)
	}
	if _, err := os.Stat(filepath.Join(root, "a", "b")); err != nil {
		t.Error("dry run must not remove anything")
	}
}

func TestPruner_MissingRoot(t *testing.T) {
	root, backend := setupTree(t, nil, nil)
	report, err := NewPruner(backend, nil, nil).Prune(context.Background(), filepath.Join(root, "missing"), false)
	if err == nil {
		t.Fatal("expected error for missing root")
	}
	if report.Status != models.StatusFailed {
		t.Errorf("status = %s, want failed", report.Status)
	}
}

func TestPruner_Cancelled(t *testing.T) {
	root, backend := setupTree(t, []string{"a"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewPruner(backend, nil, nil).Prune(ctx, root, false)
	if err == nil {
		t.Fatal("expected error")
	}
	if report.Status != models.StatusCancelled && report.Status != models.StatusFailed {
		t.Errorf("status = %s", report.Status)
	}
}
