package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pixarr-go/internal/pixarr"
)

// OverlayArea is the dry-run media area. It never touches the disk; moves and
// deletions are recorded in memory so later decisions in the same run see
// them. Safe for concurrent use.
type OverlayArea struct {
	layout
	reserved map[string]bool
	removed  map[string]bool
	mu       sync.Mutex
}

func NewOverlayArea(root string) *OverlayArea {
	return &OverlayArea{
		layout:   newLayout(root),
		reserved: make(map[string]bool),
		removed:  make(map[string]bool),
	}
}

func (o *OverlayArea) ReserveReview(name string) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	dest := nonClobber(filepath.Join(o.reviewDir, name), o.existsLocked)
	o.reserved[dest] = true
	return dest
}

// Place records the move. dest is expected to come from ReserveReview.
func (o *OverlayArea) Place(src *pixarr.Path, dest string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.existsLocked(src.String()) {
		return fmt.Errorf("source does not exist: %s", src.String())
	}
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("destination already exists: %s", dest)
	}
	o.removed[src.String()] = true
	o.reserved[dest] = true
	return nil
}

func (o *OverlayArea) Quarantine(src *pixarr.Path, sc *pixarr.Sidecar) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.existsLocked(src.String()) {
		return "", fmt.Errorf("source does not exist: %s", src.String())
	}
	dest := nonClobber(filepath.Join(o.QuarantineDir(sc.Reason), src.Name()), o.existsLocked)
	o.removed[src.String()] = true
	o.reserved[dest] = true
	return dest, nil
}

func (o *OverlayArea) Delete(src *pixarr.Path) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.removed[src.String()] = true
	return nil
}

func (o *OverlayArea) Exists(path string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.existsLocked(path)
}

func (o *OverlayArea) existsLocked(path string) bool {
	if o.removed[path] {
		return false
	}
	if o.reserved[path] {
		return true
	}
	_, err := os.Lstat(path)
	return err == nil
}

// Compile-time check that OverlayArea implements pixarr.MediaArea interface
var _ pixarr.MediaArea = (*OverlayArea)(nil)
