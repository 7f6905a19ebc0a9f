// Package dbtest opens throwaway SQLite databases for storage tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"library-backend/internal/platform/db"
)

// Open returns a migrated SQLite database living in t.TempDir().
func Open(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Connect(db.DatabaseConfig{
		Driver: db.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "library_test.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.Migrate(context.Background(), conn, db.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

// Exec runs a fixture statement and fails the test on error.
func Exec(t *testing.T, conn *sql.DB, query string, args ...any) sql.Result {
	t.Helper()
	res, err := conn.ExecContext(context.Background(), query, args...)
	if err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
	return res
}
