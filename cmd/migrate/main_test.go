package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadMigrations(t *testing.T) {
	dir := t.TempDir()

	write := func(name, sql string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("0002_create_runs.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.reconciliation_runs` (run_id STRING);")
	write("0001_create_documents.sql", "CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.documents` (document_id STRING);")
	write("README.md", "not a migration")
	write("001_bad_version.sql", "SELECT 1;")

	oldDir, oldProject, oldDataset := *migrationsDir, *projectID, *datasetID
	*migrationsDir, *projectID, *datasetID = dir, "test-project", "test_dataset"
	defer func() { *migrationsDir, *projectID, *datasetID = oldDir, oldProject, oldDataset }()

	migrations, err := readMigrations()
	if err != nil {
		t.Fatalf("readMigrations() error = %v", err)
	}

	if len(migrations) != 2 {
		t.Fatalf("got %d migrations, want 2", len(migrations))
	}

	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("migrations out of order: %d, %d", migrations[0].Version, migrations[1].Version)
	}

	if migrations[0].Name != "create_documents" {
		t.Errorf("name = %q, want %q", migrations[0].Name, "create_documents")
	}

	if !strings.Contains(migrations[0].SQL, "`test-project.test_dataset.documents`") {
		t.Errorf("placeholders not replaced: %s", migrations[0].SQL)
	}

	if migrations[0].Checksum == "" || migrations[0].Checksum == migrations[1].Checksum {
		t.Error("checksums should be non-empty and distinct per file")
	}
}

func TestReadMigrationsMissingDir(t *testing.T) {
	oldDir := *migrationsDir
	*migrationsDir = filepath.Join(t.TempDir(), "does-not-exist")
	defer func() { *migrationsDir = oldDir }()

	if _, err := readMigrations(); err == nil {
		t.Fatal("expected an error for a missing migrations directory")
	}
}
