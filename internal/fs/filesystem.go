package fs

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"pixarr-go/internal/pixarr"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
type OSFilesystemManager struct {
	ignoreDirs *Matcher
}

// NewOSFilesystemManager creates a filesystem manager that prunes directories
// whose names match ignoreDirs while walking.
func NewOSFilesystemManager(ignoreDirs []string) *OSFilesystemManager {
	return &OSFilesystemManager{ignoreDirs: NewMatcher(ignoreDirs)}
}

// Resolve validates a raw path and returns a Path object.
func (m *OSFilesystemManager) Resolve(rawPath string) (*pixarr.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	if mode&os.ModeDevice != 0 {
		return nil, fmt.Errorf("device files not supported: %s", absPath)
	}
	if mode&os.ModeNamedPipe != 0 {
		return nil, fmt.Errorf("named pipes not supported: %s", absPath)
	}
	if mode&os.ModeSocket != 0 {
		return nil, fmt.Errorf("sockets not supported: %s", absPath)
	}

	if info.IsDir() {
		// Walks do not follow links, so a linked staging root is resolved here.
		if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
			absPath = resolved
		}
	}

	return pixarr.NewPath(absPath, info.IsDir(), info), nil
}

// Walk visits every non-directory entry under root in lexical order.
// Symlinks are reported, not followed. An unreadable root is an error; an
// unreadable subdirectory is passed to fn and skipped.
func (m *OSFilesystemManager) Walk(ctx context.Context, root *pixarr.Path, fn pixarr.WalkFunc) error {
	if !root.IsDir() {
		return fmt.Errorf("path is not a directory: %s", root.String())
	}

	err := filepath.WalkDir(root.String(), func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if p == root.String() {
				return err
			}
			return fn(pixarr.NewPath(p, true, nil), err)
		}
		if d.IsDir() {
			if p != root.String() && m.ignoreDirs.Match(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// Vanished since the directory was read; the health check reports it.
			info = nil
		}
		return fn(pixarr.NewPath(p, false, info), nil)
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", root.String(), err)
	}
	return nil
}

// Check follows symlinks, so a dangling link is a stat error.
func (m *OSFilesystemManager) Check(path *pixarr.Path) pixarr.Health {
	info, err := os.Stat(path.String())
	if err != nil {
		return pixarr.Health{Kind: pixarr.HealthStatError, Err: err}
	}
	if !info.Mode().IsRegular() {
		return pixarr.Health{Kind: pixarr.HealthStatError, Err: fmt.Errorf("not a regular file: %s", info.Mode().Type())}
	}
	if info.Size() == 0 {
		return pixarr.Health{Kind: pixarr.HealthZeroBytes}
	}

	f, err := os.Open(path.String())
	if err != nil {
		return pixarr.Health{Kind: pixarr.HealthStatError, Err: err}
	}
	_ = f.Close()
	return pixarr.Health{Kind: pixarr.HealthOK, Size: info.Size()}
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path *pixarr.Path) (io.ReadCloser, error) {
	if path.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path.String())
	}
	return os.Open(path.String())
}

func (m *OSFilesystemManager) FileTimes(path *pixarr.Path) (pixarr.FileTimes, error) {
	info, err := os.Stat(path.String())
	if err != nil {
		return pixarr.FileTimes{}, fmt.Errorf("stat %s: %w", path.String(), err)
	}
	return pixarr.FileTimes{
		Modified: info.ModTime(),
		Born:     birthTime(path.String()),
	}, nil
}

// Exists uses Lstat, so a dangling symlink exists.
func (m *OSFilesystemManager) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Compile-time check that OSFilesystemManager implements pixarr.FilesystemManager interface
var _ pixarr.FilesystemManager = (*OSFilesystemManager)(nil)
