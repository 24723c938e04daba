package database

import (
	"database/sql"
	"fmt"
	"time"

	"pixarr-go/internal/pixarr"
)

// Instants are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Capture times are stored as wall clock; tz_offset holds the zone when known.
const takenLayout = "2006-01-02T15:04:05"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (time.Time, error) {
	if !ns.Valid {
		return time.Time{}, nil
	}
	return parseTime(ns.String)
}

func formatTakenAt(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(takenLayout), Valid: true}
}

// parseTakenAt rebuilds a capture time in its recorded offset, or UTC.
func parseTakenAt(taken, offset sql.NullString) (time.Time, error) {
	if !taken.Valid {
		return time.Time{}, nil
	}
	loc := time.UTC
	if offset.Valid && offset.String != "" {
		if z, err := time.Parse("-07:00", offset.String); err == nil {
			loc = z.Location()
		}
	}
	t, err := time.ParseInLocation(takenLayout, taken.String, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing taken_at %q: %w", taken.String, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// sqlLimit maps "no limit" to SQLite's -1.
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (*pixarr.Batch, error) {
	var (
		b              pixarr.Batch
		startedAt      string
		finishedAt     sql.NullString
		notes, summary sql.NullString
	)
	if err := row.Scan(&b.ID, &b.Source, &b.Mode, &startedAt, &finishedAt, &notes, &summary); err != nil {
		return nil, err
	}
	var err error
	if b.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if b.FinishedAt, err = parseNullTime(finishedAt); err != nil {
		return nil, err
	}
	b.Notes, b.Summary = notes.String, summary.String
	return &b, nil
}

func scanBinary(row scanner) (*pixarr.BinaryRecord, error) {
	var (
		r                                 pixarr.BinaryRecord
		content, takenAt, takenSource, tz sql.NullString
		lat, lon                          sql.NullFloat64
		state                             string
		canonical, reason                 sql.NullString
		addedAt, updatedAt                string
		verifiedAt, deletedAt             sql.NullString
	)
	if err := row.Scan(&r.ID, &r.BinaryDigest, &content, &r.Ext, &r.Bytes, &takenAt, &takenSource,
		&tz, &lat, &lon, &state, &canonical, &reason,
		&addedAt, &updatedAt, &verifiedAt, &deletedAt); err != nil {
		return nil, err
	}

	r.ContentDigest, r.TakenSource, r.TZOffset = content.String, takenSource.String, tz.String
	r.State = pixarr.State(state)
	r.CanonicalPath = canonical.String
	r.QuarantineReason = pixarr.Disposition(reason.String)
	if lat.Valid && lon.Valid {
		r.GPS = &pixarr.Coordinates{Lat: lat.Float64, Lon: lon.Float64}
	}

	var err error
	if r.TakenAt, err = parseTakenAt(takenAt, tz); err != nil {
		return nil, err
	}
	if r.AddedAt, err = parseTime(addedAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if r.LastVerifiedAt, err = parseNullTime(verifiedAt); err != nil {
		return nil, err
	}
	if r.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return nil, err
	}
	return &r, nil
}
