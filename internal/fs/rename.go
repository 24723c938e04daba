package fs

import (
	"fmt"
	"os"
)

func renameChecked(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, dst)
	}
	return os.Rename(src, dst)
}
