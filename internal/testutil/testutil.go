// Package testutil provides shared test helpers for setting up studios and databases.
package testutil

import (
	"os"
	"testing"

	"github.com/origincreativegroup/folio/internal/store"
	"github.com/origincreativegroup/folio/internal/studio"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "folio-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStudio creates a temporary studio directory.
func TestStudio(t *testing.T) (string, *studio.Dir) {
	t.Helper()
	root := t.TempDir()
	dir, err := studio.NewDir(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, dir
}
