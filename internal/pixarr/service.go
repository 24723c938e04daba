package pixarr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pixarr-go/internal/capture"
)

// RetrySource is the batch source label used by RetryMoveFailed.
const RetrySource = "retry:move_failed"

// IngestService is the orchestration layer: it walks one staging root,
// screens every file, consults and updates the ledger, and performs the
// filesystem action the outcome calls for.
//
// The ledger is always written before the file is moved. A crash between the
// two leaves a record whose canonical file is missing, which the next run
// detects and places again.
type IngestService struct {
	ledger   Ledger
	fsmgr    FilesystemManager
	area     MediaArea
	screener *Screener
	dupes    *DuplicateResolver
	opts     Options
	logger   Logger
	clock    Clock
	idgen    IDGenerator

	// planned holds the would-be state of records touched by dry runs of
	// this service, keyed by binary digest, so that repeats within one batch
	// or a later source resolve the same way they would in write mode.
	planned map[string]plan
}

type plan struct {
	state     State
	canonical string
	reason    Disposition
}

// NewIngestService creates an IngestService. In dry-run mode area must not
// touch the disk.
func NewIngestService(ledger Ledger, fsmgr FilesystemManager, area MediaArea, junk JunkMatcher, fingerprinter Fingerprinter, extractor MetadataExtractor, opts Options, logger Logger, clock Clock, idgen IDGenerator) *IngestService {
	return &IngestService{
		ledger:   ledger,
		fsmgr:    fsmgr,
		area:     area,
		screener: NewScreener(opts, fsmgr, junk, fingerprinter, extractor, logger),
		dupes:    NewDuplicateResolver(ledger, area.Exists),
		opts:     opts,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		planned:  make(map[string]plan),
	}
}

type observation struct {
	batch    *Batch
	root     *Path
	path     *Path
	retrying bool
}

func (o *observation) sighting(d Disposition, detail string, now time.Time) *Sighting {
	return &Sighting{
		SourceRoot:  o.root.String(),
		FullPath:    o.path.String(),
		Filename:    o.path.Name(),
		FolderHint:  FolderHint(o.root.String(), o.path.String()),
		BatchID:     o.batch.ID,
		Disposition: d,
		Detail:      detail,
		SeenAt:      now,
	}
}

func ledgerError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLedger, op, err)
}

// IngestSource runs one batch over the staging root of source. A ledger
// failure aborts the batch and leaves it open; the partial result is
// returned with the error.
func (s *IngestService) IngestSource(ctx context.Context, source string, root *Path, notes string) (*BatchResult, error) {
	if !root.IsDir() {
		return nil, fmt.Errorf("staging root is not a directory: %s", root.String())
	}

	batch, err := s.openBatch(source, notes)
	if err != nil {
		return nil, err
	}
	stats := NewStats()

	err = s.fsmgr.Walk(ctx, root, func(p *Path, walkErr error) error {
		if walkErr != nil {
			stats.Warnings++
			s.logger.Warn("directory unreadable, skipping", "path", p.String(), "error", walkErr)
			return nil
		}
		return s.process(ctx, &observation{batch: batch, root: root, path: p}, stats)
	})
	return s.finishBatch(batch, stats, err)
}

// RetryMoveFailed places files parked in Quarantine/move_failed whose record
// still awaits placement, using the capture time stored on the record.
func (s *IngestService) RetryMoveFailed(ctx context.Context, notes string) (*BatchResult, error) {
	dir := s.area.QuarantineDir(MoveFailed)
	if !s.fsmgr.Exists(dir) {
		s.logger.Info("nothing to retry", "dir", dir)
		return &BatchResult{Stats: NewStats()}, nil
	}
	root, err := s.fsmgr.Resolve(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving quarantine directory: %w", err)
	}

	batch, err := s.openBatch(RetrySource, notes)
	if err != nil {
		return nil, err
	}
	stats := NewStats()

	err = s.fsmgr.Walk(ctx, root, func(p *Path, walkErr error) error {
		if walkErr != nil {
			stats.Warnings++
			s.logger.Warn("directory unreadable, skipping", "path", p.String(), "error", walkErr)
			return nil
		}
		if strings.HasSuffix(p.Name(), SidecarSuffix) {
			return nil
		}
		return s.retry(ctx, &observation{batch: batch, root: root, path: p, retrying: true}, stats)
	})
	return s.finishBatch(batch, stats, err)
}

func (s *IngestService) openBatch(source, notes string) (*Batch, error) {
	batch := &Batch{
		ID:        s.idgen.New(),
		Source:    source,
		Mode:      s.opts.mode(),
		StartedAt: s.clock.Now(),
		Notes:     notes,
	}
	if err := s.ledger.CreateBatch(batch); err != nil {
		return nil, ledgerError("opening batch", err)
	}
	s.logger.Info("batch started", "batch", batch.ID, "source", source, "mode", batch.Mode)
	return batch, nil
}

func (s *IngestService) finishBatch(batch *Batch, stats *Stats, runErr error) (*BatchResult, error) {
	batch.Summary = stats.Summary()
	result := &BatchResult{Batch: batch, Stats: stats}
	if runErr != nil {
		s.logger.Error("batch aborted", "batch", batch.ID, "summary", batch.Summary, "error", runErr)
		return result, runErr
	}

	if err := s.ledger.CloseBatch(batch.ID, batch.Summary); err != nil {
		return result, ledgerError("closing batch", err)
	}
	batch.FinishedAt = s.clock.Now()
	s.logger.Info("batch finished", "batch", batch.ID, "summary", batch.Summary)
	return result, nil
}

// process handles one file from a staging root. Only ledger failures and
// cancellation are returned; everything else is counted and logged.
func (s *IngestService) process(ctx context.Context, obs *observation, stats *Stats) error {
	sc, err := s.screener.Screen(ctx, obs.path)
	if err != nil {
		return err
	}

	switch sc.Disposition {
	case Junk, UnsupportedExt:
		stats.add(sc.Disposition)
		s.logger.Debug("file skipped", "path", obs.path.String(), "disposition", sc.Disposition, "detail", sc.Detail)
		if s.opts.Quarantines(sc.Disposition) {
			s.quarantine(obs, sc.Disposition, sc.Detail, stats)
		}
		return nil
	}

	stats.Scanned++
	switch sc.Disposition {
	case StatError:
		return s.settle(obs, nil, StatError, sc.Detail, stats)
	case ZeroBytes:
		var rec *BinaryRecord
		if sc.Digested() {
			rec = newRecord(sc)
		}
		return s.settle(obs, rec, ZeroBytes, "", stats)
	}

	existing, err := s.ledger.FindBinaryByDigest(sc.Fingerprint.Binary)
	if err != nil {
		return ledgerError("finding binary", err)
	}
	existing = s.effective(existing)

	res, err := s.dupes.Resolve(sc.Fingerprint, existing)
	if err != nil {
		return ledgerError("resolving duplicates", err)
	}

	rec := newRecord(sc)
	if res.Disposition != "" {
		return s.duplicate(obs, rec, res, stats)
	}

	var when capture.Result
	if res.Reuse {
		when = storedCapture(existing)
	} else {
		var rejected []capture.Rejected
		when, rejected = s.screener.Date(sc)
		if !when.Found() {
			return s.settle(obs, rec, MissingDatetime, rejectedDetail(rejected), stats)
		}
		for _, r := range rejected {
			s.logger.Debug("placeholder date ignored", "path", obs.path.String(), "source", r.Source, "value", r.Value)
		}
	}

	rec.TakenAt, rec.TakenSource, rec.TZOffset = when.Time, when.Source, when.Offset
	return s.accept(obs, rec, when, !res.Reuse, stats)
}

func (s *IngestService) retry(ctx context.Context, obs *observation, stats *Stats) error {
	sc, err := s.screener.Screen(ctx, obs.path)
	if err != nil {
		return err
	}
	if !sc.Candidate() {
		stats.Warnings++
		s.logger.Warn("cannot retry file", "path", obs.path.String(), "disposition", sc.Disposition, "detail", sc.Detail)
		return nil
	}
	stats.Scanned++

	existing, err := s.ledger.FindBinaryByDigest(sc.Fingerprint.Binary)
	if err != nil {
		return ledgerError("finding binary", err)
	}
	existing = s.effective(existing)
	if existing == nil || existing.State != StateQuarantine || existing.QuarantineReason != MoveFailed || existing.TakenAt.IsZero() {
		stats.Warnings++
		s.logger.Warn("file is not awaiting a move retry, leaving in place", "path", obs.path.String())
		return nil
	}

	rec := newRecord(sc)
	when := storedCapture(existing)
	rec.TakenAt, rec.TakenSource, rec.TZOffset = when.Time, when.Source, when.Offset
	return s.accept(obs, rec, when, false, stats)
}

func newRecord(sc *Screening) *BinaryRecord {
	rec := &BinaryRecord{
		ID:            BinaryID(sc.Fingerprint.Binary),
		BinaryDigest:  sc.Fingerprint.Binary,
		ContentDigest: sc.Fingerprint.Content,
		Ext:           sc.Ext,
		Bytes:         sc.Health.Size,
		State:         StateStaged,
	}
	if sc.Tags != nil && sc.Tags.GPS != nil {
		rec.GPS = &Coordinates{Lat: sc.Tags.GPS.Lat, Lon: sc.Tags.GPS.Lon}
	}
	return rec
}

func storedCapture(rec *BinaryRecord) capture.Result {
	source := rec.TakenSource
	if source == "" {
		source = "ledger"
	}
	return capture.Result{Time: rec.TakenAt, Offset: rec.TZOffset, Source: source}
}

func rejectedDetail(rejected []capture.Rejected) string {
	if len(rejected) == 0 {
		return ""
	}
	parts := make([]string, len(rejected))
	for i, r := range rejected {
		parts[i] = r.Source
	}
	return "rejected=" + strings.Join(parts, ",")
}

// effective overlays the dry-run plan on a stored record.
func (s *IngestService) effective(rec *BinaryRecord) *BinaryRecord {
	if rec == nil || !s.opts.DryRun {
		return rec
	}
	p, ok := s.planned[rec.BinaryDigest]
	if !ok {
		return rec
	}
	view := *rec
	view.State, view.CanonicalPath, view.QuarantineReason = p.state, p.canonical, p.reason
	return &view
}

// record writes the observation. In dry-run mode the transition is only
// remembered, never applied, and no capture time is stored.
func (s *IngestService) record(obs *observation, rec *BinaryRecord, d Disposition, detail string, t Transition) (*BinaryRecord, error) {
	if s.opts.DryRun {
		if rec != nil && t.State != "" {
			s.planned[rec.BinaryDigest] = plan{state: t.State, canonical: t.CanonicalPath, reason: t.Reason}
		}
		t = Transition{}
		if rec != nil {
			undated := *rec
			undated.TakenAt, undated.TakenSource, undated.TZOffset = time.Time{}, "", ""
			rec = &undated
		}
	}

	sighting := obs.sighting(d, detail, s.clock.Now())
	if rec != nil {
		sighting.BinaryID = rec.ID
	}
	stored, err := s.ledger.RecordObservation(rec, sighting, t)
	if err != nil {
		return nil, ledgerError("recording observation", err)
	}
	return stored, nil
}

// settle records a file that will not be placed: stat errors, empty files
// and undatable files. An undatable file loses any capture time stored by an
// earlier run.
func (s *IngestService) settle(obs *observation, rec *BinaryRecord, d Disposition, detail string, stats *Stats) error {
	quarantine := s.opts.Quarantines(d)
	t := Transition{State: StateStaged}
	if quarantine {
		t = Transition{State: StateQuarantine, Reason: d}
	}
	t.Retime = d == MissingDatetime
	if _, err := s.record(obs, rec, d, detail, t); err != nil {
		return err
	}

	stats.add(d)
	s.logger.Info("file held back", "path", obs.path.String(), "disposition", d, "detail", detail)
	if quarantine {
		s.quarantine(obs, d, detail, stats)
	}
	return nil
}

func (s *IngestService) duplicate(obs *observation, rec *BinaryRecord, res Resolution, stats *Stats) error {
	action := s.opts.Duplicates.For(res.Disposition)
	extra := res.Extra()

	var t Transition
	if res.Match.Basis == "binary" {
		// Another copy of a known binary: the record keeps its state.
		t.Verified = action != ActionQuarantine
	} else {
		switch action {
		case ActionIgnore:
			t = Transition{State: StateStaged}
		case ActionQuarantine:
			t = Transition{State: StateQuarantine, Reason: DuplicateContent}
		case ActionDelete:
			t = Transition{State: StateDeleted}
		}
	}
	if _, err := s.record(obs, rec, res.Disposition, extra, t); err != nil {
		return err
	}

	stats.add(res.Disposition)
	s.logger.Info("duplicate found", "path", obs.path.String(), "disposition", res.Disposition, "action", action, "matched", res.Match.Record.ID)
	switch action {
	case ActionQuarantine:
		s.quarantine(obs, res.Disposition, extra, stats)
	case ActionDelete:
		if err := s.area.Delete(obs.path); err != nil {
			stats.Warnings++
			s.logger.Warn("deleting duplicate failed", "path", obs.path.String(), "error", err)
		}
	}
	return nil
}

// accept places a dated file into Review. retime is set when the capture time
// was resolved in this run rather than read back from the record.
func (s *IngestService) accept(obs *observation, rec *BinaryRecord, when capture.Result, retime bool, stats *Stats) error {
	dest := s.area.ReserveReview(CanonicalName(when.Time, rec.BinaryDigest, rec.Ext))
	t := Transition{State: StateReview, CanonicalPath: dest, Verified: true}
	if retime {
		t.Retime, t.TakenAt, t.TakenSource, t.TZOffset = true, when.Time, when.Source, when.Offset
	}
	stored, err := s.record(obs, rec, Accepted, dest, t)
	if err != nil {
		return err
	}

	if err := s.area.Place(obs.path, dest); err != nil {
		return s.moveFailed(obs, stored, dest, err, stats)
	}

	stats.add(Accepted)
	s.logger.Info("file accepted", "path", obs.path.String(), "dest", dest,
		"taken_at", when.Time.Format(time.DateTime), "taken_source", when.Source)
	return nil
}

// moveFailed records a second sighting for a file whose placement failed and
// parks the record in quarantine, or back in staged when the source is gone
// or move failures are not quarantined.
func (s *IngestService) moveFailed(obs *observation, stored *BinaryRecord, dest string, moveErr error, stats *Stats) error {
	stats.add(MoveFailed)
	s.logger.Warn("move into review failed", "path", obs.path.String(), "dest", dest, "error", moveErr)

	present := s.fsmgr.Exists(obs.path.String())
	if !present {
		stats.Warnings++
		s.logger.Warn("source vanished after failed move", "path", obs.path.String())
	}

	quarantine := obs.retrying || (present && s.opts.Quarantines(MoveFailed))
	t := Transition{State: StateStaged}
	if quarantine {
		t = Transition{State: StateQuarantine, Reason: MoveFailed}
	}
	if _, err := s.record(obs, stored, MoveFailed, moveErr.Error(), t); err != nil {
		return err
	}

	if quarantine && !obs.retrying {
		s.quarantine(obs, MoveFailed, moveErr.Error(), stats)
	}
	return nil
}

func (s *IngestService) quarantine(obs *observation, reason Disposition, extra string, stats *Stats) {
	sc := &Sidecar{
		Reason:       reason,
		Extra:        extra,
		OriginalPath: obs.path.String(),
		BatchID:      obs.batch.ID,
		Timestamp:    s.clock.Now().UTC().Format(time.RFC3339),
	}
	dest, err := s.area.Quarantine(obs.path, sc)
	if err != nil {
		stats.Warnings++
		s.logger.Warn("quarantine failed", "path", obs.path.String(), "reason", reason, "error", err)
		return
	}
	s.logger.Info("file quarantined", "path", obs.path.String(), "reason", reason, "dest", dest)
}
