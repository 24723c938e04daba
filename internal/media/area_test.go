package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pixarr-go/internal/pixarr"
)

func writeFile(t *testing.T, path, content string) *pixarr.Path {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	return pixarr.NewPath(path, false, nil)
}

func TestNewFileSystemArea(t *testing.T) {
	root := filepath.Join(t.TempDir(), "media")
	if _, err := NewFileSystemArea(root); err != nil {
		t.Fatalf("NewFileSystemArea() error = %v", err)
	}
	for _, dir := range []string{StagingDir, ReviewDir, LibraryDir, QuarantineDir} {
		if info, err := os.Stat(filepath.Join(root, dir)); err != nil || !info.IsDir() {
			t.Errorf("%s directory not created: %v", dir, err)
		}
	}
}

func TestFileSystemArea_ReserveReview(t *testing.T) {
	root := t.TempDir()
	a, err := NewFileSystemArea(root)
	if err != nil {
		t.Fatalf("NewFileSystemArea() error = %v", err)
	}

	name := "2024-01-16_15-57-40_abcdef12.jpg"
	first := a.ReserveReview(name)
	if first != filepath.Join(root, ReviewDir, name) {
		t.Errorf("ReserveReview() = %s", first)
	}

	writeFile(t, first, "taken")
	writeFile(t, filepath.Join(root, ReviewDir, "2024-01-16_15-57-40_abcdef12_2.jpg"), "taken")

	if got, want := a.ReserveReview(name), filepath.Join(root, ReviewDir, "2024-01-16_15-57-40_abcdef12_3.jpg"); got != want {
		t.Errorf("ReserveReview() = %s, want %s", got, want)
	}
}

func TestFileSystemArea_Place(t *testing.T) {
	t.Run("moves file", func(t *testing.T) {
		root := t.TempDir()
		a, _ := NewFileSystemArea(root)
		src := writeFile(t, filepath.Join(root, StagingDir, "pc", "IMG_1.jpg"), "img")

		dest := a.ReserveReview("x.jpg")
		if err := a.Place(src, dest); err != nil {
			t.Fatalf("Place() error = %v", err)
		}
		if a.Exists(src.String()) {
			t.Error("source still exists")
		}
		if !a.Exists(dest) {
			t.Error("destination missing")
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		root := t.TempDir()
		a, _ := NewFileSystemArea(root)
		src := writeFile(t, filepath.Join(root, StagingDir, "pc", "IMG_1.jpg"), "new")
		dest := filepath.Join(root, ReviewDir, "x.jpg")
		writeFile(t, dest, "old")

		if err := a.Place(src, dest); err == nil {
			t.Fatal("Place() expected error")
		}
		if data, _ := os.ReadFile(dest); string(data) != "old" {
			t.Errorf("destination overwritten: %q", data)
		}
	})

	t.Run("removes sidecar when leaving quarantine", func(t *testing.T) {
		root := t.TempDir()
		a, _ := NewFileSystemArea(root)
		src := writeFile(t, filepath.Join(a.QuarantineDir(pixarr.MoveFailed), "IMG_1.jpg"), "img")
		writeFile(t, src.String()+pixarr.SidecarSuffix, "{}")

		if err := a.Place(src, a.ReserveReview("x.jpg")); err != nil {
			t.Fatalf("Place() error = %v", err)
		}
		if a.Exists(src.String() + pixarr.SidecarSuffix) {
			t.Error("sidecar left behind")
		}
	})
}

func TestFileSystemArea_Quarantine(t *testing.T) {
	t.Run("moves file and writes sidecar", func(t *testing.T) {
		root := t.TempDir()
		a, _ := NewFileSystemArea(root)
		src := writeFile(t, filepath.Join(root, StagingDir, "pc", ".DS_Store"), "junk")

		sc := &pixarr.Sidecar{
			Reason:       pixarr.Junk,
			Extra:        "system_file",
			OriginalPath: src.String(),
			BatchID:      "batch-1",
			Timestamp:    "2024-01-15T10:30:00Z",
		}
		dest, err := a.Quarantine(src, sc)
		if err != nil {
			t.Fatalf("Quarantine() error = %v", err)
		}
		if want := filepath.Join(root, QuarantineDir, "junk", ".DS_Store"); dest != want {
			t.Errorf("dest = %s, want %s", dest, want)
		}

		got, err := ReadSidecar(dest)
		if err != nil {
			t.Fatalf("ReadSidecar() error = %v", err)
		}
		if got.Reason != pixarr.Junk || got.Extra != "system_file" || got.BatchID != "batch-1" {
			t.Errorf("sidecar = %+v", got)
		}
		if got.QuarantinedTo == nil || *got.QuarantinedTo != dest {
			t.Errorf("QuarantinedTo = %v, want %s", got.QuarantinedTo, dest)
		}
		if sc.QuarantinedTo != nil {
			t.Error("caller's sidecar was modified")
		}
	})

	t.Run("same name twice is not clobbered", func(t *testing.T) {
		root := t.TempDir()
		a, _ := NewFileSystemArea(root)
		first := writeFile(t, filepath.Join(root, StagingDir, "pc", "a", "clip.avi"), "1")
		second := writeFile(t, filepath.Join(root, StagingDir, "pc", "b", "clip.avi"), "2")

		d1, err := a.Quarantine(first, &pixarr.Sidecar{Reason: pixarr.UnsupportedExt})
		if err != nil {
			t.Fatalf("Quarantine() error = %v", err)
		}
		d2, err := a.Quarantine(second, &pixarr.Sidecar{Reason: pixarr.UnsupportedExt})
		if err != nil {
			t.Fatalf("Quarantine() error = %v", err)
		}
		if d1 == d2 {
			t.Fatalf("both files quarantined to %s", d1)
		}
		if filepath.Base(d2) != "clip_2.avi" {
			t.Errorf("second dest = %s, want clip_2.avi", filepath.Base(d2))
		}
	})

	t.Run("failed move writes failed sidecar", func(t *testing.T) {
		root := t.TempDir()
		a, _ := NewFileSystemArea(root)
		src := pixarr.NewPath(filepath.Join(root, StagingDir, "pc", "gone.jpg"), false, nil)

		if _, err := a.Quarantine(src, &pixarr.Sidecar{Reason: pixarr.StatError}); err == nil {
			t.Fatal("Quarantine() expected error")
		}
		data, err := os.ReadFile(filepath.Join(a.QuarantineDir(pixarr.StatError), "gone.jpg.failed.quarantine.json"))
		if err != nil {
			t.Fatalf("failed sidecar missing: %v", err)
		}
		if want := `"quarantined_to": null`; !strings.Contains(string(data), want) {
			t.Errorf("failed sidecar = %s, want %s", data, want)
		}
	})
}

func TestFileSystemArea_Delete(t *testing.T) {
	root := t.TempDir()
	a, _ := NewFileSystemArea(root)
	src := writeFile(t, filepath.Join(root, StagingDir, "pc", "dup.jpg"), "dup")

	if err := a.Delete(src); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if a.Exists(src.String()) {
		t.Error("file still exists")
	}
}
