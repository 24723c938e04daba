package pixarr

import (
	"path/filepath"
	"testing"
	"time"
)

func TestCanonicalName(t *testing.T) {
	taken := time.Date(2023, 7, 4, 18, 30, 5, 0, time.FixedZone("", -5*3600))
	got := CanonicalName(taken, "0123456789abcdef", ".JPG")
	if want := "2023-07-04_18-30-05_01234567.jpg"; got != want {
		t.Errorf("CanonicalName() = %q, want %q", got, want)
	}
}

func TestFolderHint(t *testing.T) {
	root := filepath.FromSlash("/staging/pc")
	tests := []struct {
		name string
		path string
		want string
	}{
		{"file at root", "/staging/pc/a.jpg", ""},
		{"meaningful parent", "/staging/pc/Rome 2023/a.jpg", "Rome 2023"},
		{"skips generic folder", "/staging/pc/Wedding/DCIM/a.jpg", "Wedding"},
		{"generic folder case folded", "/staging/pc/Wedding/iPhone/a.jpg", "Wedding"},
		{"only generic folders", "/staging/pc/DCIM/Camera/a.jpg", ""},
		{"short words only", "/staging/pc/ab_cd/a.jpg", ""},
		{"nearest meaningful wins", "/staging/pc/Holidays/Beach-Day/a.jpg", "Beach-Day"},
		{"outside root", "/elsewhere/Trip/a.jpg", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FolderHint(root, filepath.FromSlash(tt.path)); got != tt.want {
				t.Errorf("FolderHint(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
