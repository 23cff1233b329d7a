// Package testutil provides shared helpers for tests: an in-memory
// database with the full schema applied, and mock repositories.
package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stackwatch/stackwatch/internal/repository/sqldb"
	"github.com/stackwatch/stackwatch/migrations"
)

// NewTestDB creates an in-memory SQLite database with all migrations
// applied.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := sqldb.RunMigrations(db, migrations.GetFS()); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
