package db_test

import (
	"path/filepath"
	"testing"

	"freestuff/pkg/db"
)

func TestDB(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "db_test.db")

	d, err := db.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if d == nil {
		t.Fatal("Init() returned nil DB")
	}

	// Re-running migrations against an existing file must be safe.
	if _, err := d.Exec("INSERT INTO blocked_users (user_id) VALUES ('u1')"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	d.Close()

	d, err = db.Init(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer d.Close()

	var count int
	if err := d.QueryRow("SELECT count(*) FROM blocked_users").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 blocked user, got %d", count)
	}
}
