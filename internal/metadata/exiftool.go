package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Exiftool runs the exiftool binary once per file.
type Exiftool struct {
	binary  string
	timeout time.Duration
}

// NewExiftool returns an extractor for the given binary. An empty binary means
// "exiftool" on PATH; a zero timeout disables the per-file deadline.
func NewExiftool(binary string, timeout time.Duration) *Exiftool {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "exiftool"
	}
	return &Exiftool{binary: binary, timeout: timeout}
}

// Available reports whether the binary can be found.
func (e *Exiftool) Available() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return fmt.Errorf("exiftool not found (%s): %w", e.binary, err)
	}
	return nil
}

// Extract executes exiftool against path and decodes its JSON response.
func (e *Exiftool) Extract(ctx context.Context, path string) (*Tags, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("exiftool extract: empty path")
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.binary,
		"-j", "-n", "-G",
		"-api", "largefilesupport=1",
		"--MakerNotes", "--PreviewImage", "--ThumbnailImage",
		"--", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("exiftool extract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseExiftoolJSON(output)
}

func parseExiftoolJSON(output []byte) (*Tags, error) {
	var objects []map[string]any
	if err := json.Unmarshal(output, &objects); err != nil {
		return nil, fmt.Errorf("exiftool parse: %w", err)
	}
	if len(objects) == 0 {
		return Empty(), nil
	}
	return FromMap("exiftool", objects[0]), nil
}
