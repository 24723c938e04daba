package pixarr

import (
	"io/fs"
	"path/filepath"
)

// Path is a filesystem entry found while walking a staging root. Info is the
// Lstat result from discovery, so a symlink reports itself rather than its
// target.
type Path struct {
	absPath string
	isDir   bool
	info    fs.FileInfo
}

// NewPath creates a Path from its components.
// This is primarily for use by FilesystemManager implementations.
func NewPath(absPath string, isDir bool, info fs.FileInfo) *Path {
	return &Path{
		absPath: absPath,
		isDir:   isDir,
		info:    info,
	}
}

func (p *Path) String() string {
	return p.absPath
}

// Name returns the base name of the path.
func (p *Path) Name() string {
	return filepath.Base(p.absPath)
}

func (p *Path) IsDir() bool {
	return p.isDir
}

// Info returns the cached file info from discovery. It may be nil.
func (p *Path) Info() fs.FileInfo {
	return p.info
}
