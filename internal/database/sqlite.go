package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pixarr-go/internal/database/migrations"
	"pixarr-go/internal/pixarr"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteLedger implements the Ledger interface using SQLite.
type SQLiteLedger struct {
	db    *sql.DB
	path  string
	clock pixarr.Clock
}

// NewSQLiteLedger opens a ledger. path can be a file path or ":memory:".
// The schema is not migrated here; see CheckMigrations and Migrate.
func NewSQLiteLedger(path string, clock pixarr.Clock) (*SQLiteLedger, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteLedgerFromDB(db, path, clock), nil
}

// NewSQLiteLedgerFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteLedgerFromDB(db *sql.DB, path string, clock pixarr.Clock) *SQLiteLedger {
	if clock == nil {
		clock = pixarr.RealClock{}
	}
	return &SQLiteLedger{db: db, path: path, clock: clock}
}

// OpenConnection opens and configures a SQLite connection.
// Foreign keys and the busy timeout are set through the DSN so that every
// pooled connection gets them. File databases use WAL.
func OpenConnection(path string) (*sql.DB, error) {
	params := []string{"_foreign_keys=on", "_busy_timeout=5000"}
	memory := path == ":memory:" || strings.Contains(path, "mode=memory")
	if !memory {
		params = append(params, "_journal_mode=WAL", "_synchronous=NORMAL")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	db, err := sql.Open("sqlite3", path+sep+strings.Join(params, "&"))
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	if memory {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return db, nil
}

// Batch operations

func (s *SQLiteLedger) CreateBatch(batch *pixarr.Batch) error {
	_, err := s.db.Exec(
		`INSERT INTO batches (id, source, mode, started_at, notes) VALUES (?, ?, ?, ?, ?)`,
		batch.ID, batch.Source, batch.Mode, formatTime(batch.StartedAt), nullString(batch.Notes),
	)
	if err != nil {
		return fmt.Errorf("creating batch: %w", err)
	}
	return nil
}

func (s *SQLiteLedger) CloseBatch(id string, summary string) error {
	res, err := s.db.Exec(
		`UPDATE batches SET finished_at = ?, summary = ? WHERE id = ?`,
		formatTime(s.clock.Now()), nullString(summary), id,
	)
	if err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return fmt.Errorf("closing batch: no batch with id %s", id)
	}
	return nil
}

const batchColumns = `id, source, mode, started_at, finished_at, notes, summary`

func (s *SQLiteLedger) FindBatch(id string) (*pixarr.Batch, error) {
	row := s.db.QueryRow(`SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	batch, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding batch: %w", err)
	}
	return batch, nil
}

func (s *SQLiteLedger) ListBatches(limit int) ([]*pixarr.Batch, error) {
	rows, err := s.db.Query(
		`SELECT `+batchColumns+` FROM batches ORDER BY started_at DESC, id LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close()

	var batches []*pixarr.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("listing batches: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (s *SQLiteLedger) ListSightingsForBatch(batchID string) ([]*pixarr.Sighting, error) {
	rows, err := s.db.Query(`
		SELECT id, binary_id, source_root, full_path, filename, folder_hint,
		       batch_id, disposition, detail, seen_at
		FROM sightings WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("listing sightings: %w", err)
	}
	defer rows.Close()

	var sightings []*pixarr.Sighting
	for rows.Next() {
		var (
			sg                     pixarr.Sighting
			binaryID, hint, detail sql.NullString
			disposition, seenAt    string
		)
		if err := rows.Scan(&sg.ID, &binaryID, &sg.SourceRoot, &sg.FullPath, &sg.Filename, &hint,
			&sg.BatchID, &disposition, &detail, &seenAt); err != nil {
			return nil, fmt.Errorf("listing sightings: %w", err)
		}
		sg.BinaryID, sg.FolderHint, sg.Detail = binaryID.String, hint.String, detail.String
		sg.Disposition = pixarr.Disposition(disposition)
		if sg.SeenAt, err = parseTime(seenAt); err != nil {
			return nil, err
		}
		sightings = append(sightings, &sg)
	}
	return sightings, rows.Err()
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteLedger) Path() string {
	return s.path
}

// CheckMigrations verifies the ledger schema is up-to-date.
func (s *SQLiteLedger) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Migrate applies pending schema migrations.
func (s *SQLiteLedger) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// BackupTo creates a complete copy of the ledger at destPath using VACUUM INTO.
func (s *SQLiteLedger) BackupTo(destPath string) error {
	_, err := s.db.ExecContext(context.Background(), "VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up ledger: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteLedger) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteLedger implements pixarr.Ledger interface
var _ pixarr.Ledger = (*SQLiteLedger)(nil)
