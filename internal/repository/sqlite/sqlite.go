// Package sqlite implements the per-user repositories (share history and usage
// counters) on an embedded SQLite database.
//
// WHY SQLITE HERE AND REDIS FOR SHARES?
// Shares must expire on their own, which is a Redis feature. History and
// counters are small, durable, per-user rows that want SQL queries (filter by
// user, order by time, upsert a counter). An embedded database keeps that
// without another server to run.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no C toolchain is
// needed to build the binary.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/codeagentix.db" → file-based database
//   - ":memory:"            → in-memory database for tests
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every new connection to ":memory:" is a brand new empty database, so
	// the pool is pinned to a single connection to keep tables visible.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a counter update is being written.
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

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS share_history (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			share_id   TEXT NOT NULL,
			title      TEXT NOT NULL DEFAULT '',
			language   TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, share_id)
		);
		CREATE INDEX IF NOT EXISTS idx_share_history_user_expires
			ON share_history(user_id, expires_at);
	`)
	if err != nil {
		return fmt.Errorf("creating share_history table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS usage_counters (
			user_id    TEXT NOT NULL,
			action     TEXT NOT NULL,
			count      INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, action)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating usage_counters table: %w", err)
	}

	return nil
}
