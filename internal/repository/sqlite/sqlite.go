// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// Production runs on Postgres (see ../postgres). SQLite backs local runs and
// demos: one file, no server, and ":memory:" for tests. Both backends create
// the same two tables.
//
// DRIVER:
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary builds
// with CGO_ENABLED=0.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The sqlite package's init() registers a database/sql driver named "sqlite".
	_ "modernc.org/sqlite"

	"github.com/sakif/access-git/internal/repository"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// compile-time check that *DB is a complete metadata store
var _ repository.Store = (*DB)(nil)

// New opens (or creates) the database at dbPath and creates the tables.
//
// dbPath examples:
//   - "data/access-git.db"  → file-based database (persistent)
//   - ":memory:"            → in-memory database (tests, lost on close)
//
// ONE CONNECTION:
// Every pooled connection to ":memory:" would be its own empty database, and
// SQLite serialises writers anyway, so the pool is capped at one connection.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	// sql.Open only validates its arguments; Ping opens the file.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) mode lets reads proceed while a write
	// (a topic sync, say) is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Ping checks the database is still reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the tables.
//
// There is no schema evolution: CREATE TABLE IF NOT EXISTS is safe to run on
// every start and the schema has not changed since the first release.
func (db *DB) migrate() error {
	// gh_repositories: one row per repository the dashboard has seen.
	// topic is nullable; deleting a topic nulls it and keeps the row.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS gh_repositories (
			id        INTEGER PRIMARY KEY,
			name      TEXT NOT NULL,
			full_name TEXT NOT NULL,
			html_url  TEXT NOT NULL DEFAULT '',
			owner     TEXT NOT NULL,
			topic     TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_gh_repositories_owner_nocase_topic ON gh_repositories(owner COLLATE NOCASE, topic);
	`)
	if err != nil {
		return fmt.Errorf("creating gh_repositories table: %w", err)
	}

	// gh_login: named password hashes. Only "site_password" is used.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS gh_login (
			name            TEXT PRIMARY KEY,
			hashed_password TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating gh_login table: %w", err)
	}

	return nil
}
