// Package testdb opens migrated SQLite databases for tests.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    tdb := testdb.New(t)
//	    // tdb.DB is closed automatically when the test ends
//	}
package testdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"weddingrsvp/internal/database"
)

// TestDB is an isolated database living in the test's temp dir
type TestDB struct {
	DB   *database.DB
	Path string
}

// New creates a fresh SQLite database with all migrations applied
func New(t *testing.T) *TestDB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Initialize(path)
	if err != nil {
		t.Fatalf("testdb: failed to open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("testdb: failed to migrate: %v", err)
	}

	return &TestDB{DB: db, Path: path}
}

// Context returns a context that expires with the test
func (tdb *TestDB) Context(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// Count returns the number of rows in table
func (tdb *TestDB) Count(t *testing.T, table string) int {
	t.Helper()
	var n int
	if err := tdb.DB.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("testdb: failed to count %s: %v", table, err)
	}
	return n
}
