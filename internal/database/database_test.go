package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t testing.TB) (db *Database, dbPath string) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath = filepath.Join(tmpDir, "test.db")

	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return db, dbPath
}

func TestNewCreatesSchema(t *testing.T) {
	db, dbPath := setupTestDB(t)

	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file not created: %v", err)
	}

	for _, table := range []string{"users", "sessions", "announcements", "metadata"} {
		var name string
		err := db.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestNewIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	first, err := New(ctx, dbPath)
	if err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	if err := first.CreateAnnouncement(ctx, &Announcement{
		ID: "a1", OriginalName: "a.wav", AudioPath: "/tmp/a.wav", Status: StatusTranscribed,
	}); err != nil {
		t.Fatalf("CreateAnnouncement() error = %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	second, err := New(ctx, dbPath)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer second.Close()

	if _, err := second.GetAnnouncement(ctx, "a1"); err != nil {
		t.Errorf("announcement lost across reopen: %v", err)
	}
}

func schemaVersion(t *testing.T, db *Database) int {
	t.Helper()
	var v int
	if err := db.db.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestMigrations(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	if got := schemaVersion(t, db); got != SchemaVersion {
		t.Fatalf("user_version = %d, want %d", got, SchemaVersion)
	}
	if err := db.migrate(ctx); err != nil {
		t.Errorf("migrate() on current schema error = %v", err)
	}

	// roll back the last migration and let migrate reapply it
	if _, err := db.db.Exec("ALTER TABLE announcements DROP COLUMN error_code"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.db.Exec("PRAGMA user_version = 2"); err != nil {
		t.Fatal(err)
	}
	if err := db.migrate(ctx); err != nil {
		t.Fatalf("migrate() from version 2 error = %v", err)
	}

	var count int
	err := db.db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info('announcements') WHERE name='error_code'",
	).Scan(&count)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 || schemaVersion(t, db) != SchemaVersion {
		t.Errorf("error_code columns = %d, version = %d", count, schemaVersion(t, db))
	}
}

func TestMigrateRejectsNewerSchema(t *testing.T) {
	db, _ := setupTestDB(t)
	if _, err := db.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion+1)); err != nil {
		t.Fatal(err)
	}
	if err := db.migrate(context.Background()); err == nil {
		t.Error("migrate() accepted a schema from a newer build")
	}
}

func TestNewMissingDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing", "test.db")

	db, err := New(context.Background(), dbPath)
	if err == nil {
		_ = db.Close()
		t.Fatal("New() expected error for missing parent directory")
	}
}

func TestVacuum(t *testing.T) {
	db, _ := setupTestDB(t)

	if err := db.Vacuum(context.Background()); err != nil {
		t.Errorf("Vacuum() error = %v", err)
	}
}

func TestMetadata(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetMetadata(ctx, "missing"); err == nil {
		t.Error("GetMetadata() expected error for missing key")
	}

	if err := db.SetMetadata(ctx, "k", "v1"); err != nil {
		t.Fatalf("SetMetadata() error = %v", err)
	}
	if err := db.SetMetadata(ctx, "k", "v2"); err != nil {
		t.Fatalf("SetMetadata() overwrite error = %v", err)
	}
	got, err := db.GetMetadata(ctx, "k")
	if err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}
	if got != "v2" {
		t.Errorf("GetMetadata() = %q, want v2", got)
	}
}

func TestLastRetentionRun(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	last, err := db.GetLastRetentionRun(ctx)
	if err != nil {
		t.Fatalf("GetLastRetentionRun() error = %v", err)
	}
	if !last.IsZero() {
		t.Errorf("GetLastRetentionRun() = %v, want zero", last)
	}

	now := time.Now().Truncate(time.Second)
	if err := db.SetLastRetentionRun(ctx, now); err != nil {
		t.Fatalf("SetLastRetentionRun() error = %v", err)
	}
	last, err = db.GetLastRetentionRun(ctx)
	if err != nil {
		t.Fatalf("GetLastRetentionRun() error = %v", err)
	}
	if !last.Equal(now) {
		t.Errorf("GetLastRetentionRun() = %v, want %v", last, now)
	}

	if err := db.SetLastRetentionRun(ctx, time.Time{}); err != nil {
		t.Fatalf("SetLastRetentionRun(zero) error = %v", err)
	}
	last, _ = db.GetLastRetentionRun(ctx)
	if !last.IsZero() {
		t.Errorf("after clear GetLastRetentionRun() = %v, want zero", last)
	}
}

func TestUpdateDBMetrics(t *testing.T) {
	db, _ := setupTestDB(t)

	// Must not panic on a live pool
	db.UpdateDBMetrics()
}
