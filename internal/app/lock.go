package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another pixarr process holds the data directory.
var ErrLocked = errors.New("another pixarr run is using this data directory")

const lockFile = "pixarr.lock"

// acquireLock takes the advisory run lock without blocking.
func acquireLock(dataDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	l := flock.New(filepath.Join(dataDir, lockFile))
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, l.Path())
	}
	return l, nil
}
