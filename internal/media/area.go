// Package media manages the on-disk media area:
//
//	<root>/
//	  Staging/<source>/       (inbox, one directory per source)
//	  Review/                 (accepted files under canonical names)
//	  Library/                (curated; managed outside ingestion)
//	  Quarantine/<reason>/    (held-back files plus .quarantine.json sidecars)
package media

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pixarr-go/internal/fs"
	"pixarr-go/internal/pixarr"
)

const (
	StagingDir    = "Staging"
	ReviewDir     = "Review"
	LibraryDir    = "Library"
	QuarantineDir = "Quarantine"
)

type layout struct {
	root          string
	reviewDir     string
	quarantineDir string
}

func newLayout(root string) layout {
	return layout{
		root:          root,
		reviewDir:     filepath.Join(root, ReviewDir),
		quarantineDir: filepath.Join(root, QuarantineDir),
	}
}

func (l layout) QuarantineDir(reason pixarr.Disposition) string {
	return filepath.Join(l.quarantineDir, string(reason))
}

// inQuarantine reports whether path lies inside the quarantine tree.
func (l layout) inQuarantine(path string) bool {
	rel, err := filepath.Rel(l.quarantineDir, path)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

// nonClobber returns path, or the first of stem_2.ext, stem_3.ext, ... for
// which exists is false.
func nonClobber(path string, exists func(string) bool) string {
	if !exists(path) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !exists(candidate) {
			return candidate
		}
	}
}

// FileSystemArea is the real media area. It moves files and writes sidecars.
type FileSystemArea struct {
	layout
}

// NewFileSystemArea creates the media tree under root if missing.
func NewFileSystemArea(root string) (*FileSystemArea, error) {
	for _, dir := range []string{StagingDir, ReviewDir, LibraryDir, QuarantineDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}
	return &FileSystemArea{layout: newLayout(root)}, nil
}

func (a *FileSystemArea) ReserveReview(name string) string {
	return nonClobber(filepath.Join(a.reviewDir, name), a.Exists)
}

// Place moves src to dest. When src came out of quarantine its sidecar is
// removed as well.
func (a *FileSystemArea) Place(src *pixarr.Path, dest string) error {
	if err := fs.MoveFile(src.String(), dest); err != nil {
		return err
	}
	if a.inQuarantine(src.String()) {
		if err := os.Remove(src.String() + pixarr.SidecarSuffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing sidecar: %w", err)
		}
	}
	return nil
}

// Quarantine moves src into Quarantine/<reason>/ and writes a sidecar next to
// it. If the move fails, <name>.failed.quarantine.json records the attempt.
func (a *FileSystemArea) Quarantine(src *pixarr.Path, sc *pixarr.Sidecar) (string, error) {
	dir := a.QuarantineDir(sc.Reason)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating quarantine directory: %w", err)
	}

	dest := nonClobber(filepath.Join(dir, src.Name()), a.Exists)
	if moveErr := fs.MoveFile(src.String(), dest); moveErr != nil {
		failed := *sc
		failed.QuarantinedTo = nil
		sidecar := filepath.Join(dir, src.Name()+".failed"+pixarr.SidecarSuffix)
		if err := writeSidecar(sidecar, &failed); err != nil {
			return "", errors.Join(moveErr, err)
		}
		return "", moveErr
	}

	placed := *sc
	placed.QuarantinedTo = &dest
	if err := writeSidecar(dest+pixarr.SidecarSuffix, &placed); err != nil {
		return dest, fmt.Errorf("writing sidecar: %w", err)
	}
	return dest, nil
}

func (a *FileSystemArea) Delete(src *pixarr.Path) error {
	return os.Remove(src.String())
}

// Exists uses Lstat, so a dangling symlink exists.
func (a *FileSystemArea) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// writeSidecar writes sc to destPath using atomic write (temp file + rename).
func writeSidecar(destPath string, sc *pixarr.Sidecar) error {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sidecar: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(append(data, '\n')); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// ReadSidecar loads the sidecar of a quarantined file.
func ReadSidecar(quarantined string) (*pixarr.Sidecar, error) {
	data, err := os.ReadFile(quarantined + pixarr.SidecarSuffix)
	if err != nil {
		return nil, err
	}
	var sc pixarr.Sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decoding sidecar: %w", err)
	}
	return &sc, nil
}

// Compile-time check that FileSystemArea implements pixarr.MediaArea interface
var _ pixarr.MediaArea = (*FileSystemArea)(nil)
