package media

import (
	"path/filepath"
	"testing"

	"pixarr-go/internal/pixarr"
)

func TestOverlayArea(t *testing.T) {
	t.Run("never touches the disk", func(t *testing.T) {
		root := t.TempDir()
		o := NewOverlayArea(root)
		src := writeFile(t, filepath.Join(root, StagingDir, "pc", "IMG_1.jpg"), "img")

		dest := o.ReserveReview("x.jpg")
		if err := o.Place(src, dest); err != nil {
			t.Fatalf("Place() error = %v", err)
		}
		if o.Exists(src.String()) {
			t.Error("overlay still reports the source")
		}
		if !o.Exists(dest) {
			t.Error("overlay does not report the destination")
		}

		disk, _ := NewFileSystemArea(root)
		if !disk.Exists(src.String()) {
			t.Error("source was moved on disk")
		}
		if disk.Exists(dest) {
			t.Error("destination was created on disk")
		}
	})

	t.Run("reservations are not clobbered", func(t *testing.T) {
		o := NewOverlayArea(t.TempDir())
		first := o.ReserveReview("x.jpg")
		second := o.ReserveReview("x.jpg")
		if first == second {
			t.Fatalf("both reservations = %s", first)
		}
		if filepath.Base(second) != "x_2.jpg" {
			t.Errorf("second = %s, want x_2.jpg", filepath.Base(second))
		}
	})

	t.Run("quarantine hides the source", func(t *testing.T) {
		root := t.TempDir()
		o := NewOverlayArea(root)
		src := writeFile(t, filepath.Join(root, StagingDir, "pc", "Thumbs.db"), "junk")

		dest, err := o.Quarantine(src, &pixarr.Sidecar{Reason: pixarr.Junk})
		if err != nil {
			t.Fatalf("Quarantine() error = %v", err)
		}
		if want := filepath.Join(root, QuarantineDir, "junk", "Thumbs.db"); dest != want {
			t.Errorf("dest = %s, want %s", dest, want)
		}
		if o.Exists(src.String()) {
			t.Error("overlay still reports the source")
		}
		if _, err := o.Quarantine(src, &pixarr.Sidecar{Reason: pixarr.Junk}); err == nil {
			t.Error("second Quarantine() of the same source expected error")
		}
	})

	t.Run("delete hides the source", func(t *testing.T) {
		root := t.TempDir()
		o := NewOverlayArea(root)
		src := writeFile(t, filepath.Join(root, "dup.jpg"), "dup")

		if err := o.Delete(src); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if o.Exists(src.String()) {
			t.Error("overlay still reports the source")
		}
	})
}

func TestNewArea(t *testing.T) {
	tests := []struct {
		name   string
		dryRun bool
	}{
		{name: "write mode", dryRun: false},
		{name: "dry run", dryRun: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewArea(t.TempDir(), tt.dryRun)
			if err != nil {
				t.Fatalf("NewArea() error = %v", err)
			}
			_, isOverlay := got.(*OverlayArea)
			if isOverlay != tt.dryRun {
				t.Errorf("NewArea() returned %T for dryRun=%v", got, tt.dryRun)
			}
		})
	}
}
