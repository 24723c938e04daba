package pixarr

import (
	"context"
	"io"
	"time"
)

// HealthKind classifies the result of a health check.
type HealthKind int

const (
	HealthOK HealthKind = iota
	HealthStatError
	HealthZeroBytes
)

// Health is the result of checking that a staged file can be read.
// Err is set only for HealthStatError.
type Health struct {
	Kind HealthKind
	Size int64
	Err  error
}

// FileTimes are the filesystem timestamps of a file. Born is zero when the
// platform or filesystem does not record a birth time.
type FileTimes struct {
	Modified time.Time
	Born     time.Time
}

// WalkFunc is called for every non-directory entry under a staging root.
// err is non-nil for subdirectories that could not be read; p is the
// directory then.
type WalkFunc func(p *Path, err error) error

// FilesystemManager abstracts the staging filesystem.
type FilesystemManager interface {
	// Resolve turns a raw path into an absolute Path. It fails when the
	// path does not exist.
	Resolve(rawPath string) (*Path, error)

	// Walk visits every file below root in lexical order, pruning ignored
	// directories. Symlinks and other non-regular entries are visited too.
	Walk(ctx context.Context, root *Path, fn WalkFunc) error

	// Check follows symlinks and reports whether the file is readable and non-empty.
	Check(path *Path) Health

	Open(path *Path) (io.ReadCloser, error)

	FileTimes(path *Path) (FileTimes, error)

	// Exists reports whether anything, including a dangling symlink, exists at path.
	Exists(path string) bool
}

// JunkMatcher recognizes system clutter by file name.
type JunkMatcher interface {
	// Junk returns a short description ("system_file", "appledouble") when
	// name is clutter.
	Junk(name string) (string, bool)
}
