package media

import "pixarr-go/internal/pixarr"

// NewArea returns the media area for a run: the real tree in write mode, an
// in-memory overlay in dry-run mode.
func NewArea(root string, dryRun bool) (pixarr.MediaArea, error) {
	if dryRun {
		return NewOverlayArea(root), nil
	}
	area, err := NewFileSystemArea(root)
	if err != nil {
		return nil, err
	}
	return area, nil
}
