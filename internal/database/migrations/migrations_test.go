package migrations

import (
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	for _, table := range []string{"batches", "binaries", "sightings", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}
	for _, view := range []string{"v_content_clusters", "v_review_queue"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='view' AND name=?", view).Scan(&name)
		if err != nil {
			t.Errorf("view %s was not created: %v", view, err)
		}
	}
}

func TestCheckDBMigrationStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	err := CheckDBMigrationStatus(db)
	if !errors.Is(err, ErrNeedsMigration) {
		t.Errorf("CheckDBMigrationStatus() error = %v, want ErrNeedsMigration", err)
	}

	st, err := ReadStatus(db)
	if err != nil {
		t.Fatalf("ReadStatus() error = %v", err)
	}
	if !st.Fresh || st.Latest == 0 {
		t.Errorf("ReadStatus() = %+v, want fresh with a latest version", st)
	}
}

func TestCheckDBMigrationStatus_AfterMigration(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after migration returned error: %v", err)
	}

	st, _ := ReadStatus(db)
	latest, _ := LatestVersion()
	if st.Current != latest {
		t.Errorf("Current = %d, want %d", st.Current, latest)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("second MigrateUp() failed: %v (should be idempotent)", err)
	}
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after double migration returned error: %v", err)
	}
}

func TestSchema_Constraints(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	mustExec := func(query string, args ...any) {
		t.Helper()
		if _, err := db.Exec(query, args...); err != nil {
			t.Fatalf("%s: %v", query, err)
		}
	}
	mustExec(`INSERT INTO batches (id, source, mode, started_at) VALUES ('b1', 'pc', 'write', '2024-01-15T10:30:00Z')`)
	mustExec(`INSERT INTO binaries (id, binary_digest, ext, bytes, added_at, updated_at)
		VALUES ('r1', 'aaaa', '.jpg', 1, '2024-01-15T10:30:00Z', '2024-01-15T10:30:00Z')`)
	mustExec(`INSERT INTO sightings (binary_id, source_root, full_path, filename, batch_id, disposition, seen_at)
		VALUES ('r1', '/s', '/s/a.jpg', 'a.jpg', 'b1', 'accepted', '2024-01-15T10:30:00Z')`)

	violations := []struct {
		name  string
		query string
	}{
		{
			name:  "quarantine without reason",
			query: `UPDATE binaries SET state = 'quarantine' WHERE id = 'r1'`,
		},
		{
			name:  "reason outside quarantine",
			query: `UPDATE binaries SET quarantine_reason = 'junk' WHERE id = 'r1'`,
		},
		{
			name:  "canonical path while staged",
			query: `UPDATE binaries SET canonical_path = '/r/x.jpg' WHERE id = 'r1'`,
		},
		{
			name:  "duplicate binary digest",
			query: `INSERT INTO binaries (id, binary_digest, ext, bytes, added_at, updated_at) VALUES ('r2', 'aaaa', '.jpg', 1, 'x', 'x')`,
		},
		{
			name:  "unknown state",
			query: `UPDATE binaries SET state = 'lost' WHERE id = 'r1'`,
		},
		{
			name:  "sighting without binary",
			query: `INSERT INTO sightings (source_root, full_path, filename, batch_id, disposition, seen_at) VALUES ('/s', '/s/b.jpg', 'b.jpg', 'b1', 'accepted', 'x')`,
		},
		{
			name:  "sighting for unknown batch",
			query: `INSERT INTO sightings (binary_id, source_root, full_path, filename, batch_id, disposition, seen_at) VALUES ('r1', '/s', '/s/b.jpg', 'b.jpg', 'nope', 'accepted', 'x')`,
		},
		{
			name:  "sighting update",
			query: `UPDATE sightings SET detail = 'changed'`,
		},
		{
			name:  "sighting delete",
			query: `DELETE FROM sightings`,
		},
	}

	for _, tt := range violations {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.Exec(tt.query); err == nil {
				t.Errorf("expected constraint violation for %q", tt.query)
			}
		})
	}

	mustExec(`INSERT INTO sightings (source_root, full_path, filename, batch_id, disposition, seen_at)
		VALUES ('/s', '/s/link.mov', 'link.mov', 'b1', 'stat_error', '2024-01-15T10:30:00Z')`)
}

// openTestDB opens an in-memory SQLite database with foreign keys enabled.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
