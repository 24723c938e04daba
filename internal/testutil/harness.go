package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pixarr-go/internal/fingerprint"
	"pixarr-go/internal/fs"
	"pixarr-go/internal/media"
	"pixarr-go/internal/pixarr"
)

// DefaultJunk mirrors the default junk patterns of a fresh config.
var DefaultJunk = []string{".DS_Store", "Thumbs.db", "desktop.ini", "._*"}

// Harness wires an IngestService over a temporary media tree, a real
// filesystem and an in-memory ledger. Metadata comes from a StubExtractor.
type Harness struct {
	MediaRoot string
	Staging   string // Staging/pc
	Ledger    pixarr.Ledger
	Extractor *StubExtractor
	Clock     *StubClock
	IDs       *StubIDGenerator
	FS        *fs.OSFilesystemManager
}

func NewHarness(t *testing.T) *Harness {
	t.Helper()

	root := t.TempDir()
	if _, err := media.NewFileSystemArea(root); err != nil {
		t.Fatalf("creating media area: %v", err)
	}
	staging := filepath.Join(root, media.StagingDir, "pc")
	if err := os.MkdirAll(staging, 0o755); err != nil {
		t.Fatalf("creating staging root: %v", err)
	}

	clock := FixedClock()
	return &Harness{
		MediaRoot: root,
		Staging:   staging,
		Ledger:    NewTestLedger(t, clock),
		Extractor: NewStubExtractor(),
		Clock:     clock,
		IDs:       NewStubIDGenerator(),
		FS:        fs.NewOSFilesystemManager(nil),
	}
}

// WriteOptions returns the default options with dry-run off.
func WriteOptions() pixarr.Options {
	opts := pixarr.DefaultOptions()
	opts.DryRun = false
	return opts
}

// Area returns the media area matching opts.DryRun.
func (h *Harness) Area(t *testing.T, opts pixarr.Options) pixarr.MediaArea {
	t.Helper()
	area, err := media.NewArea(h.MediaRoot, opts.DryRun)
	if err != nil {
		t.Fatalf("creating media area: %v", err)
	}
	return area
}

func (h *Harness) Service(t *testing.T, opts pixarr.Options) *pixarr.IngestService {
	t.Helper()
	return h.ServiceWithArea(opts, h.Area(t, opts))
}

func (h *Harness) ServiceWithArea(opts pixarr.Options, area pixarr.MediaArea) *pixarr.IngestService {
	return pixarr.NewIngestService(h.Ledger, h.FS, area, fs.NewJunkMatcher(DefaultJunk),
		fingerprint.New(), h.Extractor, opts, pixarr.NewNopLogger(), h.Clock, h.IDs)
}

// Ingest runs one batch over the staging root.
func (h *Harness) Ingest(t *testing.T, svc *pixarr.IngestService) (*pixarr.BatchResult, error) {
	t.Helper()
	return h.IngestFrom(t, svc, "pc")
}

// IngestFrom runs one batch over Staging/<source>.
func (h *Harness) IngestFrom(t *testing.T, svc *pixarr.IngestService, source string) (*pixarr.BatchResult, error) {
	t.Helper()
	root, err := h.FS.Resolve(h.StagingRoot(source))
	if err != nil {
		t.Fatalf("resolving staging root: %v", err)
	}
	return svc.IngestSource(context.Background(), source, root, "")
}

// StagingRoot returns the path of Staging/<source>.
func (h *Harness) StagingRoot(source string) string {
	return filepath.Join(h.MediaRoot, media.StagingDir, source)
}

// Write creates a file below the staging root and returns its absolute path.
func (h *Harness) Write(t *testing.T, rel string, data []byte) string {
	t.Helper()
	return h.WriteIn(t, "pc", rel, data)
}

// WriteIn creates a file below Staging/<source> and returns its absolute path.
func (h *Harness) WriteIn(t *testing.T, source, rel string, data []byte) string {
	t.Helper()
	path := filepath.Join(h.StagingRoot(source), rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", rel, err)
	}
	return path
}

// Review returns the path of name under Review/.
func (h *Harness) Review(name string) string {
	return filepath.Join(h.MediaRoot, media.ReviewDir, name)
}

// Quarantined returns the path of name under Quarantine/<reason>/.
func (h *Harness) Quarantined(reason pixarr.Disposition, name string) string {
	return filepath.Join(h.MediaRoot, media.QuarantineDir, string(reason), name)
}
