package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	return db
}

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	err := MigrateUp(db)
	if err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	// Verify tables were created
	tables := []string{"workspace", "host", "service", "match_rule", "file", "path", "file_match_rule", "scan_log", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}
	// Second run must be a no-op, not an error.
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() second run failed: %v", err)
	}
}

func TestCheckDBMigrationStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	err := CheckDBMigrationStatus(db)
	if err == nil {
		t.Error("CheckDBMigrationStatus() expected error for fresh database, got nil")
	}

	if err.Error() != "database has no schema version (needs migration)" {
		t.Errorf("CheckDBMigrationStatus() error = %q, want error about needing migration", err.Error())
	}
}

func TestCheckDBMigrationStatus_AfterMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	err := CheckDBMigrationStatus(db)
	if err != nil {
		t.Errorf("CheckDBMigrationStatus() after migration returned error: %v", err)
	}
}

func TestSchema_DigestUniquePerWorkspace(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec(`INSERT INTO workspace (id, name, created_at) VALUES ('ws1', 'a', datetime('now'))`)
	if err != nil {
		t.Fatalf("inserting workspace: %v", err)
	}

	insert := `INSERT INTO file (id, workspace_id, content, size_bytes, sha256, created_at)
	           VALUES (?, 'ws1', x'00', 1, 'abc', datetime('now'))`
	if _, err := db.Exec(insert, "f1"); err != nil {
		t.Fatalf("inserting file: %v", err)
	}
	if _, err := db.Exec(insert, "f2"); err == nil {
		t.Error("expected unique constraint violation for duplicate digest in workspace")
	}
}

func TestSchema_PathUniquePerService(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	setup := []string{
		`INSERT INTO workspace (id, name, created_at) VALUES ('ws1', 'a', datetime('now'))`,
		`INSERT INTO host (id, workspace_id, address, created_at) VALUES ('h1', 'ws1', '10.0.0.5', datetime('now'))`,
		`INSERT INTO service (id, host_id, kind, port, created_at) VALUES ('s1', 'h1', 'smb', 445, datetime('now'))`,
		`INSERT INTO file (id, workspace_id, content, size_bytes, sha256, created_at)
		 VALUES ('f1', 'ws1', x'00', 1, 'abc', datetime('now'))`,
	}
	for _, stmt := range setup {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("setup statement failed: %v", err)
		}
	}

	insert := `INSERT INTO path (id, service_id, file_id, share, full_path, file_name, created_at)
	           VALUES (?, 's1', 'f1', 'data', 'x/y.txt', 'y.txt', datetime('now'))`
	if _, err := db.Exec(insert, "p1"); err != nil {
		t.Fatalf("inserting path: %v", err)
	}
	if _, err := db.Exec(insert, "p2"); err == nil {
		t.Error("expected unique constraint violation for duplicate path on service")
	}
}
