package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/sdejongh/mediakit/pkg/ratelimit"
)

func newTestLocal(t *testing.T) (*Local, string) {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "mediakit-storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	local, err := NewLocal(tempDir)
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	return local, local.Root()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestNewLocal(t *testing.T) {
	t.Run("NonExistentPath", func(t *testing.T) {
		if _, err := NewLocal("/nonexistent/path/that/does/not/exist"); err == nil {
			t.Error("NewLocal() should fail for non-existent path")
		}
	})

	t.Run("FileNotDirectory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "IMG_0001.jpg")
		writeFile(t, path, "x")
		if _, err := NewLocal(path); err == nil {
			t.Error("NewLocal() should fail for file path (not directory)")
		}
	})
}

func TestLocalList(t *testing.T) {
	local, root := newTestLocal(t)
	ctx := context.Background()

	writeFile(t, filepath.Join(root, "b.mp4"), "bb")
	writeFile(t, filepath.Join(root, "a.mp4"), "a")
	writeFile(t, filepath.Join(root, "Compressed", "a.mp4"), "c")

	files, err := local.List(ctx, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(files))
	}

	wantNames := []string{"Compressed", "a.mp4", "b.mp4"}
	for i, name := range wantNames {
		if files[i].Name != name {
			t.Errorf("files[%d].Name = %s, want %s", i, files[i].Name, name)
		}
	}
	if !files[0].IsDir {
		t.Error("Compressed should be a directory")
	}
	if files[2].Size != 2 {
		t.Errorf("b.mp4 size = %d, want 2", files[2].Size)
	}
	if files[1].Path != filepath.Join(root, "a.mp4") {
		t.Errorf("Path = %s", files[1].Path)
	}

	// absolute paths bypass the root
	abs, err := local.List(ctx, filepath.Join(root, "Compressed"))
	if err != nil {
		t.Fatal(err)
	}
	if len(abs) != 1 || abs[0].RelativePath != filepath.Join("Compressed", "a.mp4") {
		t.Errorf("List(abs) = %+v", abs)
	}
}

func TestLocalWalk(t *testing.T) {
	local, root := newTestLocal(t)

	writeFile(t, filepath.Join(root, "2023-07", "a.jpg"), "a")
	writeFile(t, filepath.Join(root, "2023-08", "nested", "b.jpg"), "b")

	files, err := local.Walk(context.Background(), "")
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	// 2 top dirs, nested dir, 2 files
	if len(files) != 5 {
		t.Errorf("Walk() returned %d entries, want 5", len(files))
	}
	for _, f := range files {
		if f.Path == root {
			t.Error("Walk() should not include the root")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := local.Walk(ctx, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("Walk() with cancelled context error = %v", err)
	}
}

func TestLocalRead(t *testing.T) {
	local, root := newTestLocal(t)
	writeFile(t, filepath.Join(root, "a.wav"), "riff")

	rc, err := local.Read(context.Background(), "a.wav")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "riff" {
		t.Errorf("Read() = %q", data)
	}

	if _, err := local.Read(context.Background(), "missing.wav"); err == nil {
		t.Error("Read() should fail for missing file")
	}
}

func TestLocalMove(t *testing.T) {
	ctx := context.Background()

	t.Run("Rename", func(t *testing.T) {
		local, root := newTestLocal(t)
		writeFile(t, filepath.Join(root, "a.jpg"), "a")
		if err := local.MkdirAll(ctx, "2023-07"); err != nil {
			t.Fatal(err)
		}

		if err := local.Move(ctx, "a.jpg", filepath.Join("2023-07", "a.jpg"), false); err != nil {
			t.Fatalf("Move() error = %v", err)
		}
		if ok, _ := local.Exists(ctx, "a.jpg"); ok {
			t.Error("source should be gone")
		}
		if ok, _ := local.Exists(ctx, filepath.Join("2023-07", "a.jpg")); !ok {
			t.Error("destination should exist")
		}
	})

	t.Run("NoOverwrite", func(t *testing.T) {
		local, root := newTestLocal(t)
		writeFile(t, filepath.Join(root, "a.jpg"), "new")
		writeFile(t, filepath.Join(root, "dst", "a.jpg"), "old")

		err := local.Move(ctx, "a.jpg", filepath.Join("dst", "a.jpg"), false)
		if !errors.Is(err, os.ErrExist) {
			t.Fatalf("Move() error = %v, want os.ErrExist", err)
		}
		data, _ := os.ReadFile(filepath.Join(root, "dst", "a.jpg"))
		if string(data) != "old" {
			t.Error("destination must not be overwritten")
		}
		if ok, _ := local.Exists(ctx, "a.jpg"); !ok {
			t.Error("source must stay in place")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		local, root := newTestLocal(t)
		writeFile(t, filepath.Join(root, "a.jpg"), "new")
		writeFile(t, filepath.Join(root, "dst", "a.jpg"), "old")

		if err := local.Move(ctx, "a.jpg", filepath.Join("dst", "a.jpg"), true); err != nil {
			t.Fatalf("Move() error = %v", err)
		}
		data, _ := os.ReadFile(filepath.Join(root, "dst", "a.jpg"))
		if string(data) != "new" {
			t.Errorf("destination = %q, want new", data)
		}
	})

	t.Run("CrossDevice", func(t *testing.T) {
		local, root := newTestLocal(t)
		src := filepath.Join(root, "clip.mp4")
		writeFile(t, src, "frames")
		past := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
		if err := os.Chtimes(src, past, past); err != nil {
			t.Fatal(err)
		}
		if err := local.MkdirAll(ctx, "other"); err != nil {
			t.Fatal(err)
		}

		calls := 0
		renameFunc = func(oldpath, newpath string) error {
			calls++
			if calls == 1 {
				return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
			}
			return os.Rename(oldpath, newpath)
		}
		defer func() { renameFunc = os.Rename }()

		dst := filepath.Join(root, "other", "clip.mp4")
		if err := local.Move(ctx, src, dst, false); err != nil {
			t.Fatalf("Move() error = %v", err)
		}

		if _, err := os.Stat(src); !os.IsNotExist(err) {
			t.Error("source should be removed after copy")
		}
		info, err := os.Stat(dst)
		if err != nil {
			t.Fatalf("destination missing: %v", err)
		}
		if !info.ModTime().Equal(past) {
			t.Errorf("ModTime = %v, want %v", info.ModTime(), past)
		}
		data, _ := os.ReadFile(dst)
		if string(data) != "frames" {
			t.Errorf("content = %q", data)
		}
	})

	t.Run("CrossDeviceLimited", func(t *testing.T) {
		local, root := newTestLocal(t)
		local.SetBandwidthLimit(ratelimit.NewLimiter(1 << 20))
		src := filepath.Join(root, "photo.dng")
		writeFile(t, src, "raw sensor data")

		renameFunc = func(oldpath, newpath string) error {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
		}
		defer func() { renameFunc = os.Rename }()

		dst := filepath.Join(root, "photo-copy.dng")
		if err := local.Move(ctx, src, dst, false); err != nil {
			t.Fatalf("Move() error = %v", err)
		}
		data, _ := os.ReadFile(dst)
		if string(data) != "raw sensor data" {
			t.Errorf("content = %q", data)
		}
	})
}

func TestLocalDeleteAndRemoveDir(t *testing.T) {
	local, root := newTestLocal(t)
	ctx := context.Background()

	writeFile(t, filepath.Join(root, "full", "a.jpg"), "a")
	if err := local.MkdirAll(ctx, "empty"); err != nil {
		t.Fatal(err)
	}

	if err := local.RemoveDir(ctx, "full"); err == nil {
		t.Error("RemoveDir() should refuse a non-empty directory")
	}
	if err := local.RemoveDir(ctx, filepath.Join("full", "a.jpg")); err == nil {
		t.Error("RemoveDir() should refuse a file")
	}
	if err := local.RemoveDir(ctx, "empty"); err != nil {
		t.Errorf("RemoveDir() error = %v", err)
	}
	if err := local.Delete(ctx, "full"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}

	for _, p := range []string{"full", "empty"} {
		if ok, _ := local.Exists(ctx, p); ok {
			t.Errorf("%s should be removed", p)
		}
	}
}

func TestLocalStat(t *testing.T) {
	local, root := newTestLocal(t)
	writeFile(t, filepath.Join(root, "sub", "x.dng"), "12345")

	info, err := local.Stat(context.Background(), filepath.Join("sub", "x.dng"))
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size != 5 || info.Name != "x.dng" || info.IsDir {
		t.Errorf("Stat() = %+v", info)
	}
	if info.RelativePath != filepath.Join("sub", "x.dng") {
		t.Errorf("RelativePath = %s", info.RelativePath)
	}

	if _, err := local.Stat(context.Background(), "missing"); err == nil {
		t.Error("Stat() should fail for missing path")
	}
}

func TestBackendInterface(t *testing.T) {
	var _ Backend = (*Local)(nil)
}
