package app

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"pixarr-go/internal/config"
	"pixarr-go/internal/media"
	"pixarr-go/internal/pixarr"
	"pixarr-go/internal/testutil"
)

// newTestConfig returns a config over a temporary data dir with an
// in-memory ledger. exiftool is pointed at a binary that does not exist so
// only the native reader runs.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	cfg.Database = config.DatabaseConfig{Type: "memory"}
	cfg.Metadata.Exiftool = "pixarr-test-no-exiftool"
	cfg.LogLevel = "error"
	return cfg
}

func writeStaged(t *testing.T, cfg *config.Config, source, name string, data []byte) string {
	t.Helper()
	root, err := cfg.StagingRoot(source)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(root, name)
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func openApp(t *testing.T, cfg *config.Config, access Access) *PixarrApp {
	t.Helper()
	a, err := NewPixarrApp(cfg, "test", access)
	if err != nil {
		t.Fatalf("NewPixarrApp() error = %v", err)
	}
	return a
}

func TestPixarrApp_Ingest(t *testing.T) {
	t.Run("write batch quarantines undated file and snapshots", func(t *testing.T) {
		cfg := newTestConfig(t)
		staged := writeStaged(t, cfg, "pc", "scan.png", testutil.PNG(t, 1, png.DefaultCompression))

		a := openApp(t, cfg, Exclusive)
		results, err := a.Ingest(context.Background(), IngestRequest{Write: true, Note: "first run"})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		// Only Staging/pc exists; the other default sources are skipped.
		if len(results) != 1 {
			t.Fatalf("len(results) = %d, want 1", len(results))
		}
		res := results[0]
		if res.Batch.Source != "pc" || res.Batch.Notes != "first run" || res.Batch.Mode != pixarr.ModeWrite {
			t.Errorf("batch = %+v", res.Batch)
		}
		if got := res.Stats.Count(pixarr.MissingDatetime); got != 1 {
			t.Errorf("missing_datetime = %d, want 1", got)
		}

		quarantined := filepath.Join(cfg.MediaDir(), media.QuarantineDir, string(pixarr.MissingDatetime), "scan.png")
		if _, err := os.Stat(quarantined); err != nil {
			t.Errorf("quarantined file missing: %v", err)
		}
		if _, err := os.Stat(staged); !os.IsNotExist(err) {
			t.Error("staged file should have been moved")
		}

		reasons, err := a.Reasons()
		if err != nil {
			t.Fatal(err)
		}
		if len(reasons) != 1 || reasons[0].Key != string(pixarr.MissingDatetime) || reasons[0].Count != 1 {
			t.Errorf("Reasons() = %v", reasons)
		}

		if err := a.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		snaps, err := NewSnapshotter(nil, cfg.Snapshot, nil, nil).List()
		if err != nil {
			t.Fatal(err)
		}
		if len(snaps) != 1 {
			t.Errorf("snapshots = %v, want one", snaps)
		}
	})

	t.Run("dry run moves nothing and takes no snapshot", func(t *testing.T) {
		cfg := newTestConfig(t)
		staged := writeStaged(t, cfg, "pc", "scan.png", testutil.PNG(t, 2, png.DefaultCompression))

		a := openApp(t, cfg, Exclusive)
		if !a.DryRunDefault() {
			t.Error("DryRunDefault() = false for a fresh config")
		}
		results, err := a.Ingest(context.Background(), IngestRequest{Sources: []string{"pc"}})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if len(results) != 1 || results[0].Batch.Mode != pixarr.ModeDryRun {
			t.Fatalf("results = %+v", results)
		}
		if _, err := os.Stat(staged); err != nil {
			t.Errorf("staged file touched by dry run: %v", err)
		}
		if err := a.Close(); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(cfg.Snapshot.Dir); !os.IsNotExist(err) {
			t.Error("dry run should not write a snapshot")
		}
	})

	t.Run("unknown source", func(t *testing.T) {
		a := openApp(t, newTestConfig(t), Exclusive)
		defer a.Close()
		if _, err := a.Ingest(context.Background(), IngestRequest{Sources: []string{"camera"}}); err == nil {
			t.Error("Ingest() with unknown source should fail")
		}
	})

	t.Run("bad duplicate policy override", func(t *testing.T) {
		a := openApp(t, newTestConfig(t), Exclusive)
		defer a.Close()
		if _, err := a.Ingest(context.Background(), IngestRequest{DupReviewPolicy: "shred"}); err == nil {
			t.Error("Ingest() with unknown policy should fail")
		}
	})
}

func TestPixarrApp_Check(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Snapshot.Enabled = false
	writeStaged(t, cfg, "pc", "scan.png", testutil.PNG(t, 3, png.DefaultCompression))

	a := openApp(t, cfg, Exclusive)
	defer a.Close()

	results, err := a.Ingest(context.Background(), IngestRequest{Sources: []string{"pc"}, Write: true, AllowFileDates: true})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if got := results[0].Stats.Count(pixarr.Accepted); got != 1 {
		t.Fatalf("accepted = %d, want 1 (%s)", got, results[0].Stats.Summary())
	}

	count := func(name string) int64 {
		t.Helper()
		checks, err := a.Check()
		if err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		for _, c := range checks {
			if c.Name == name {
				return c.Count
			}
		}
		t.Fatalf("check %s not reported", name)
		return 0
	}
	if n := count("missing_canonical_file"); n != 0 {
		t.Errorf("missing_canonical_file = %d before removal, want 0", n)
	}

	queue, err := a.Review(0)
	if err != nil || len(queue) != 1 {
		t.Fatalf("Review() = %v, %v", queue, err)
	}
	if err := os.Remove(queue[0].CanonicalPath); err != nil {
		t.Fatal(err)
	}
	if n := count("missing_canonical_file"); n != 1 {
		t.Errorf("missing_canonical_file = %d after removal, want 1", n)
	}
}

func TestNewPixarrApp_Lock(t *testing.T) {
	cfg := newTestConfig(t)
	first := openApp(t, cfg, Exclusive)

	if _, err := NewPixarrApp(cfg, "test", Exclusive); !errors.Is(err, ErrLocked) {
		t.Errorf("second exclusive app error = %v, want ErrLocked", err)
	}

	reader := openApp(t, cfg, ReadOnly)
	if err := reader.Close(); err != nil {
		t.Errorf("read-only Close() error = %v", err)
	}

	if err := first.Close(); err != nil {
		t.Fatal(err)
	}
	again := openApp(t, cfg, Exclusive)
	again.Close()
}

func TestNewPixarrApp_Schema(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Database = config.DatabaseConfig{Type: "sqlite", Path: filepath.Join(cfg.DataDir, "db", "app.sqlite3")}

	if _, err := NewPixarrApp(cfg, "states", ReadOnly); err == nil {
		t.Fatal("read-only app over an empty ledger should fail")
	}

	a := openApp(t, cfg, Exclusive)
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	reader := openApp(t, cfg, ReadOnly)
	defer reader.Close()
	states, err := reader.States()
	if err != nil {
		t.Fatalf("States() error = %v", err)
	}
	if len(states) != 0 {
		t.Errorf("States() = %v, want none", states)
	}
	if _, _, err := reader.BatchItems("nope"); err == nil {
		t.Error("BatchItems() for unknown batch should fail")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := config.NewConfig(t.TempDir())
		opts, err := OptionsFromConfig(cfg)
		if err != nil {
			t.Fatalf("OptionsFromConfig() error = %v", err)
		}
		if !opts.DryRun {
			t.Error("DryRun = false, want true")
		}
		if opts.Duplicates.InReview != pixarr.ActionIgnore || opts.Duplicates.InLibrary != pixarr.ActionQuarantine {
			t.Errorf("Duplicates = %+v", opts.Duplicates)
		}
		if !opts.Quarantine[pixarr.MissingDatetime] || len(opts.Quarantine) != 6 {
			t.Errorf("Quarantine = %v", opts.Quarantine)
		}
		if !opts.SupportedExt[".heic"] {
			t.Error(".heic should be supported")
		}
	})

	t.Run("unknown policy", func(t *testing.T) {
		cfg := config.NewConfig(t.TempDir())
		cfg.Duplicates.Content = "shred"
		if _, err := OptionsFromConfig(cfg); err == nil {
			t.Error("OptionsFromConfig() should reject unknown policy")
		}
	})
}

func TestIngestRequestApply(t *testing.T) {
	base, err := OptionsFromConfig(config.NewConfig(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		req     IngestRequest
		check   func(pixarr.Options) bool
		wantErr bool
	}{
		{"empty request keeps config", IngestRequest{}, func(o pixarr.Options) bool {
			return o.DryRun && !o.Dates.AllowFilename && !o.Dates.AllowFilesystem
		}, false},
		{"write", IngestRequest{Write: true}, func(o pixarr.Options) bool { return !o.DryRun }, false},
		{"date fallbacks", IngestRequest{AllowFilenameDates: true, AllowFileDates: true}, func(o pixarr.Options) bool {
			return o.Dates.AllowFilename && o.Dates.AllowFilesystem
		}, false},
		{"review policy", IngestRequest{DupReviewPolicy: "delete"}, func(o pixarr.Options) bool {
			return o.Duplicates.InReview == pixarr.ActionDelete
		}, false},
		{"bad review policy", IngestRequest{DupReviewPolicy: "maybe"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.apply(base)
			if (err != nil) != tt.wantErr {
				t.Fatalf("apply() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(got) {
				t.Errorf("apply() = %+v", got)
			}
		})
	}
}
