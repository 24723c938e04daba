package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"

	"pixarr-go/internal/config"
	"pixarr-go/internal/database"
	"pixarr-go/internal/database/migrations"
	"pixarr-go/internal/encryption"
	"pixarr-go/internal/fingerprint"
	"pixarr-go/internal/fs"
	"pixarr-go/internal/media"
	"pixarr-go/internal/metadata"
	"pixarr-go/internal/pixarr"
)

// Access describes what a command needs from the data directory.
type Access int

const (
	// ReadOnly opens the ledger without taking the run lock.
	ReadOnly Access = iota
	// Exclusive takes the run lock and migrates a ledger that has no schema yet.
	Exclusive
	// Maintenance takes the run lock and skips the schema check.
	Maintenance
)

// PixarrApp is the application layer between the CLI and IngestService.
// It constructs all dependencies from config, exposes the ingest and report
// operations, and snapshots the ledger on Close after write batches.
type PixarrApp struct {
	cfg       *config.Config
	ledger    pixarr.Ledger
	fsmgr     *fs.OSFilesystemManager
	opts      pixarr.Options
	snapshots *Snapshotter
	logger    pixarr.Logger
	lock      *flock.Flock
	logFile   *os.File
	command   string
	wrote     bool
}

// NewPixarrApp creates a fully wired PixarrApp from the given config.
// command names the CLI command being run and is logged with the run.
// The caller must call Close when done.
func NewPixarrApp(cfg *config.Config, command string, access Access) (*PixarrApp, error) {
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	var lock *flock.Flock
	if access != ReadOnly {
		if lock, err = acquireLock(cfg.DataDir); err != nil {
			return nil, err
		}
	}
	unlock := func() {
		if lock != nil {
			lock.Unlock()
		}
	}

	ledger, err := database.NewLedgerFromConfig(cfg.Database, pixarr.RealClock{})
	if err != nil {
		unlock()
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	if access != Maintenance {
		if err := checkSchema(ledger, access); err != nil {
			ledger.Close()
			unlock()
			return nil, err
		}
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Snapshot.Encryption)
	if err != nil {
		ledger.Close()
		unlock()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	runID := time.Now().UTC().Format(snapshotLayout)
	logger, logFile, err := newLogger(cfg.LogDir, runID, cfg.LogLevel)
	if err != nil {
		ledger.Close()
		unlock()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger.Debug("run started", "command", command)

	return &PixarrApp{
		cfg:       cfg,
		ledger:    ledger,
		fsmgr:     fs.NewOSFilesystemManager(cfg.Filesystem.IgnoreDirs),
		opts:      opts,
		snapshots: NewSnapshotter(ledger, cfg.Snapshot, enc, pixarr.RealClock{}),
		logger:    &slogAdapter{l: logger},
		lock:      lock,
		logFile:   logFile,
		command:   command,
	}, nil
}

// checkSchema migrates a ledger without schema when the caller holds the run
// lock. An outdated ledger is never migrated implicitly.
func checkSchema(ledger pixarr.Ledger, access Access) error {
	err := ledger.CheckMigrations()
	if err == nil {
		return nil
	}
	if errors.Is(err, migrations.ErrNeedsMigration) && access == Exclusive {
		if err := ledger.Migrate(); err != nil {
			return fmt.Errorf("initializing ledger schema: %w", err)
		}
		return nil
	}
	return fmt.Errorf("checking ledger schema: %w", err)
}

// extractor builds the metadata chain: exiftool when it is on PATH, then
// the in-process EXIF reader when enabled.
func (a *PixarrApp) extractor() pixarr.MetadataExtractor {
	m := a.cfg.Metadata
	var chain []metadata.Extractor

	et := metadata.NewExiftool(m.Exiftool, time.Duration(m.TimeoutSeconds)*time.Second)
	if err := et.Available(); err != nil {
		a.logger.Warn("exiftool unavailable", "error", err)
	} else {
		chain = append(chain, et)
	}
	if m.NativeFallback {
		chain = append(chain, metadata.NewNative())
	}
	if len(chain) == 0 {
		a.logger.Warn("no metadata extractor enabled, embedded dates will be missing")
	}
	return metadata.NewChain(chain...)
}

func (a *PixarrApp) service(opts pixarr.Options) (*pixarr.IngestService, error) {
	area, err := media.NewArea(a.cfg.MediaDir(), opts.DryRun)
	if err != nil {
		return nil, fmt.Errorf("opening media area: %w", err)
	}
	return pixarr.NewIngestService(a.ledger, a.fsmgr, area, fs.NewJunkMatcher(a.cfg.Filesystem.Junk),
		fingerprint.NewWithDecodable(fingerprint.DefaultDecodable, a.cfg.Fingerprint.MaxPixels),
		a.extractor(), opts, a.logger, pixarr.RealClock{}, pixarr.UUIDGenerator{}), nil
}

// Ingest runs one batch per requested source, in order. A missing staging
// root is skipped with a warning. A batch error stops the run; the results
// gathered so far are returned with it.
func (a *PixarrApp) Ingest(ctx context.Context, req IngestRequest) ([]*pixarr.BatchResult, error) {
	opts, err := req.apply(a.opts)
	if err != nil {
		return nil, err
	}

	sources := req.Sources
	if len(sources) == 0 {
		sources = a.cfg.Sources()
	}
	roots := make([]string, len(sources))
	for i, source := range sources {
		if roots[i], err = a.cfg.StagingRoot(source); err != nil {
			return nil, err
		}
	}

	svc, err := a.service(opts)
	if err != nil {
		return nil, err
	}

	var results []*pixarr.BatchResult
	for i, source := range sources {
		root, err := a.fsmgr.Resolve(roots[i])
		if err == nil && !root.IsDir() {
			err = fmt.Errorf("not a directory")
		}
		if err != nil {
			a.logger.Warn("staging root unavailable, skipping", "source", source, "root", roots[i], "error", err)
			continue
		}

		res, err := svc.IngestSource(ctx, source, root, req.Note)
		if res != nil {
			results = append(results, res)
			if !opts.DryRun {
				a.wrote = true
			}
		}
		if err != nil {
			return results, fmt.Errorf("ingesting %s: %w", source, err)
		}
		a.logger.Info("batch finished", "source", source, "batch", res.Batch.ID, "summary", res.Stats.Summary())
	}
	return results, nil
}

// RetryMoveFailed retries placement of files parked in Quarantine/move_failed.
func (a *PixarrApp) RetryMoveFailed(ctx context.Context, write bool, note string) (*pixarr.BatchResult, error) {
	opts := a.opts
	if write {
		opts.DryRun = false
	}
	svc, err := a.service(opts)
	if err != nil {
		return nil, err
	}
	res, err := svc.RetryMoveFailed(ctx, note)
	if res != nil && res.Batch != nil && !opts.DryRun {
		a.wrote = true
	}
	return res, err
}

// DryRunDefault reports whether ingest without --write is a dry run.
func (a *PixarrApp) DryRunDefault() bool {
	return a.opts.DryRun
}

func (a *PixarrApp) Batches(limit int) ([]*pixarr.Batch, error) {
	return a.ledger.ListBatches(limit)
}

// BatchItems returns the batch and every sighting it recorded.
func (a *PixarrApp) BatchItems(batchID string) (*pixarr.Batch, []*pixarr.Sighting, error) {
	batch, err := a.ledger.FindBatch(batchID)
	if err != nil {
		return nil, nil, err
	}
	if batch == nil {
		return nil, nil, fmt.Errorf("unknown batch: %s", batchID)
	}
	items, err := a.ledger.ListSightingsForBatch(batchID)
	if err != nil {
		return nil, nil, err
	}
	return batch, items, nil
}

func (a *PixarrApp) States() ([]pixarr.Count, error) {
	return a.ledger.CountByState()
}

func (a *PixarrApp) Reasons() ([]pixarr.Count, error) {
	return a.ledger.CountByQuarantineReason()
}

func (a *PixarrApp) Quarantined(limit int) ([]*pixarr.BinaryRecord, error) {
	return a.ledger.ListBinariesByState(pixarr.StateQuarantine, limit)
}

func (a *PixarrApp) Review(limit int) ([]*pixarr.BinaryRecord, error) {
	return a.ledger.ReviewQueue(limit)
}

func (a *PixarrApp) Clusters() ([]*pixarr.ContentCluster, error) {
	return a.ledger.ListContentClusters()
}

func (a *PixarrApp) Schema() (string, error) {
	return a.ledger.DumpSchema()
}

// Check runs the ledger consistency checks plus missing_canonical_file,
// which counts review and library records whose file is gone from disk.
func (a *PixarrApp) Check() ([]pixarr.CheckResult, error) {
	results, err := a.ledger.RunChecks()
	if err != nil {
		return nil, err
	}

	var missing int64
	for _, state := range []pixarr.State{pixarr.StateReview, pixarr.StateLibrary} {
		recs, err := a.ledger.ListBinariesByState(state, 0)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if !a.fsmgr.Exists(rec.CanonicalPath) {
				a.logger.Debug("canonical file missing", "binary", rec.ID, "path", rec.CanonicalPath)
				missing++
			}
		}
	}
	return append(results, pixarr.CheckResult{Name: "missing_canonical_file", Count: missing}), nil
}

// Migrate applies pending ledger migrations.
func (a *PixarrApp) Migrate() error {
	return a.ledger.Migrate()
}

// Close snapshots the ledger if a write batch ran, then releases everything.
// The first error wins.
func (a *PixarrApp) Close() error {
	var firstErr error

	if a.wrote && a.cfg.Snapshot.Enabled {
		path, err := a.snapshots.Take()
		if err != nil {
			firstErr = fmt.Errorf("taking ledger snapshot: %w", err)
		} else {
			a.logger.Info("ledger snapshot written", "path", path)
		}
	}

	if err := a.ledger.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing ledger: %w", err)
	}

	if a.lock != nil {
		if err := a.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("releasing run lock: %w", err)
		}
	}

	a.logger.Debug("run finished", "command", a.command)
	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
