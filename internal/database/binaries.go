package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pixarr-go/internal/pixarr"
)

const binaryColumns = `id, binary_digest, content_digest, ext, bytes, taken_at, taken_source,
	tz_offset, gps_lat, gps_lon, state, canonical_path, quarantine_reason,
	added_at, updated_at, last_verified_at, deleted_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func findBinary(ctx context.Context, q queryer, where string, args ...any) (*pixarr.BinaryRecord, error) {
	row := q.QueryRowContext(ctx, `SELECT `+binaryColumns+` FROM binaries WHERE `+where, args...)
	rec, err := scanBinary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteLedger) FindBinaryByDigest(binaryDigest string) (*pixarr.BinaryRecord, error) {
	rec, err := findBinary(context.Background(), s.db, `binary_digest = ?`, binaryDigest)
	if err != nil {
		return nil, fmt.Errorf("finding binary by digest: %w", err)
	}
	return rec, nil
}

func (s *SQLiteLedger) FindBinaryByID(id string) (*pixarr.BinaryRecord, error) {
	rec, err := findBinary(context.Background(), s.db, `id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("finding binary by id: %w", err)
	}
	return rec, nil
}

func (s *SQLiteLedger) FindContentMatch(contentDigest, binaryDigest string) (*pixarr.BinaryRecord, error) {
	if contentDigest == "" {
		return nil, nil
	}
	rec, err := findBinary(context.Background(), s.db, `
		content_digest = ? AND binary_digest != ?
		AND state IN ('staged', 'review', 'library')
		ORDER BY added_at, id LIMIT 1`, contentDigest, binaryDigest)
	if err != nil {
		return nil, fmt.Errorf("finding content match: %w", err)
	}
	return rec, nil
}

// upsertBinary inserts rec as staged, or refreshes an existing row. Capture
// time, GPS and content digest are only filled in when still unknown; a
// Retime transition replaces the capture time afterwards.
func upsertBinary(ctx context.Context, q queryer, rec *pixarr.BinaryRecord, now string) error {
	var lat, lon sql.NullFloat64
	if rec.GPS != nil {
		lat = sql.NullFloat64{Float64: rec.GPS.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: rec.GPS.Lon, Valid: true}
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO binaries (id, binary_digest, content_digest, ext, bytes, taken_at, taken_source,
		                      tz_offset, gps_lat, gps_lon, state, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'staged', ?, ?)
		ON CONFLICT(binary_digest) DO UPDATE SET
			content_digest = COALESCE(binaries.content_digest, excluded.content_digest),
			taken_source   = CASE WHEN binaries.taken_at IS NULL THEN excluded.taken_source ELSE binaries.taken_source END,
			tz_offset      = CASE WHEN binaries.taken_at IS NULL THEN excluded.tz_offset ELSE binaries.tz_offset END,
			taken_at       = COALESCE(binaries.taken_at, excluded.taken_at),
			gps_lat        = COALESCE(binaries.gps_lat, excluded.gps_lat),
			gps_lon        = COALESCE(binaries.gps_lon, excluded.gps_lon),
			updated_at     = excluded.updated_at`,
		rec.ID, rec.BinaryDigest, nullString(rec.ContentDigest), rec.Ext, rec.Bytes,
		formatTakenAt(rec.TakenAt), nullString(rec.TakenSource), nullString(rec.TZOffset),
		lat, lon, now, now,
	)
	return err
}

// applyTransition changes state and clears fields that do not belong to the
// new state. An empty canonical path keeps the current one. A zero capture
// time on a Retime clears taken_source and tz_offset as well.
func applyTransition(ctx context.Context, q queryer, id string, t pixarr.Transition, now string) error {
	if t.State != "" {
		if t.State == pixarr.StateQuarantine && t.Reason == "" {
			return fmt.Errorf("quarantine transition for %s has no reason", id)
		}

		var canonical, reason sql.NullString
		if t.State.Placed() {
			canonical = nullString(t.CanonicalPath)
		}
		if t.State == pixarr.StateQuarantine {
			reason = nullString(string(t.Reason))
		}

		res, err := q.ExecContext(ctx, `
			UPDATE binaries SET
				state             = ?,
				canonical_path    = CASE WHEN ? THEN COALESCE(?, canonical_path) ELSE NULL END,
				quarantine_reason = ?,
				deleted_at        = CASE WHEN ? THEN COALESCE(deleted_at, ?) ELSE NULL END,
				updated_at        = ?
			WHERE id = ?`,
			string(t.State),
			t.State.Placed(), canonical,
			reason,
			t.State == pixarr.StateDeleted, now,
			now,
			id,
		)
		if err != nil {
			return fmt.Errorf("updating state: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n != 1 {
			return fmt.Errorf("no binary with id %s", id)
		}
	}

	if t.Retime {
		source, offset := t.TakenSource, t.TZOffset
		if t.TakenAt.IsZero() {
			source, offset = "", ""
		}
		if _, err := q.ExecContext(ctx, `
			UPDATE binaries SET taken_at = ?, taken_source = ?, tz_offset = ?, updated_at = ?
			WHERE id = ?`,
			formatTakenAt(t.TakenAt), nullString(source), nullString(offset), now, id,
		); err != nil {
			return fmt.Errorf("updating capture time: %w", err)
		}
	}

	if t.Verified {
		if _, err := q.ExecContext(ctx,
			`UPDATE binaries SET last_verified_at = ? WHERE id = ?`, now, id); err != nil {
			return fmt.Errorf("marking verified: %w", err)
		}
	}
	return nil
}

func insertSighting(ctx context.Context, q queryer, sg *pixarr.Sighting, binaryID string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO sightings (binary_id, source_root, full_path, filename, folder_hint,
		                       batch_id, disposition, detail, seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(binaryID), sg.SourceRoot, sg.FullPath, sg.Filename, nullString(sg.FolderHint),
		sg.BatchID, string(sg.Disposition), nullString(sg.Detail), formatTime(sg.SeenAt),
	)
	return err
}

func (s *SQLiteLedger) RecordObservation(rec *pixarr.BinaryRecord, sighting *pixarr.Sighting, t pixarr.Transition) (*pixarr.BinaryRecord, error) {
	ctx := context.Background()
	now := formatTime(s.clock.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var stored *pixarr.BinaryRecord
	binaryID := ""
	if rec != nil {
		if err := upsertBinary(ctx, tx, rec, now); err != nil {
			return nil, fmt.Errorf("upserting binary: %w", err)
		}
		// The row keeps its original id even if rec.ID was derived differently.
		stored, err = findBinary(ctx, tx, `binary_digest = ?`, rec.BinaryDigest)
		if err != nil {
			return nil, fmt.Errorf("reading back binary: %w", err)
		}
		if stored == nil {
			return nil, fmt.Errorf("binary %s missing after upsert", rec.BinaryDigest)
		}
		if err := applyTransition(ctx, tx, stored.ID, t, now); err != nil {
			return nil, err
		}
		binaryID = stored.ID
	}

	if err := insertSighting(ctx, tx, sighting, binaryID); err != nil {
		return nil, fmt.Errorf("inserting sighting: %w", err)
	}

	if stored != nil {
		if stored, err = findBinary(ctx, tx, `id = ?`, binaryID); err != nil {
			return nil, fmt.Errorf("reading back binary: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	sighting.BinaryID = binaryID
	return stored, nil
}

func (s *SQLiteLedger) ApplyTransition(id string, t pixarr.Transition) (*pixarr.BinaryRecord, error) {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := applyTransition(ctx, tx, id, t, formatTime(s.clock.Now())); err != nil {
		return nil, err
	}
	rec, err := findBinary(ctx, tx, `id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("reading back binary: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return rec, nil
}

func (s *SQLiteLedger) listBinaries(query string, args ...any) ([]*pixarr.BinaryRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*pixarr.BinaryRecord
	for rows.Next() {
		rec, err := scanBinary(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteLedger) ListBinariesByState(state pixarr.State, limit int) ([]*pixarr.BinaryRecord, error) {
	recs, err := s.listBinaries(`SELECT `+binaryColumns+` FROM binaries
		WHERE state = ? ORDER BY added_at, id LIMIT ?`, string(state), sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("listing binaries: %w", err)
	}
	return recs, nil
}

func (s *SQLiteLedger) ReviewQueue(limit int) ([]*pixarr.BinaryRecord, error) {
	recs, err := s.listBinaries(`SELECT `+binaryColumns+` FROM binaries
		WHERE id IN (SELECT id FROM v_review_queue)
		ORDER BY taken_at, id LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("listing review queue: %w", err)
	}
	return recs, nil
}
