package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidateDirAcceptsRepositoryMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("repository migrations should validate: %v", err)
	}
}

func TestValidateDirRejectsBadNamesAndDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "20260101000000_first.sql", "-- +goose Up\n-- +goose Down\n")
	writeMigration(t, dir, "20260101000000_second.sql", "-- +goose Up\n-- +goose Down\n")

	err := ValidateDir(dir)
	if err == nil || !strings.Contains(err.Error(), "duplicate migration version") {
		t.Fatalf("expected duplicate version error, got %v", err)
	}

	dir = t.TempDir()
	writeMigration(t, dir, "add_things.sql", "-- +goose Up\n-- +goose Down\n")
	if err := ValidateDir(dir); err == nil {
		t.Fatalf("expected invalid filename error")
	}

	dir = t.TempDir()
	writeMigration(t, dir, "20260101000000_no_down.sql", "-- +goose Up\n")
	if err := ValidateDir(dir); err == nil {
		t.Fatalf("expected missing down section error")
	}

	dir = t.TempDir()
	writeMigration(t, dir, "20260101000000_swapped.sql", "-- +goose Down\n-- +goose Up\n")
	if err := ValidateDir(dir); err == nil || !strings.Contains(err.Error(), "before Up") {
		t.Fatalf("expected section order error, got %v", err)
	}

	if err := ValidateDir(t.TempDir()); err == nil {
		t.Fatalf("expected empty directory to be rejected")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 9, 1, 9, 30, 0, 0, time.UTC)

	path, err := createSQLMigration(dir, "Add Claim Columns!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260901093000_add_claim_columns.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	if _, err := createSQLMigration(dir, "add claim columns", now); err == nil {
		t.Fatalf("expected existing migration to be rejected")
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := createSQLMigration(dir, "backfill next send", now.Add(-time.Hour)); err == nil {
		t.Fatalf("expected a version older than the latest migration to be rejected")
	}
	if _, err := createSQLMigration(dir, "!!!", now.Add(time.Hour)); err == nil {
		t.Fatalf("expected empty sanitized name to be rejected")
	}
	path, err = createSQLMigration(dir, "add failure index", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("create follow-up migration: %v", err)
	}
	if filepath.Base(path) != "20260901093100_add_failure_index.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
}

func writeMigration(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
