// Package sqlite implements the repository interfaces on an embedded SQLite
// database, as an alternative to the CSV files.
//
// WHY A SECOND BACKEND?
// The CSV files are the marketplace's native format and stay the default.
// SQLite gives the same contracts with real transactions, which matters once
// more than one admin edits listings at a time. Both backends satisfy
// repository.UserRepository and repository.ListingRepository, so the
// services never know which one they run on.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary still
// cross-compiles without a C toolchain.
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides both repositories.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/veiculos.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SINGLE CONNECTION:
	// SQLite allows one writer at a time anyway, and every ":memory:"
	// connection is its own empty database. One pooled connection keeps
	// both cases simple.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

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

// migrate creates the tables. CREATE TABLE IF NOT EXISTS and
// addColumnIfNotExists make it safe to run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			email         TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			name          TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Accounts created before roles existed are regular users.
	if err := db.addColumnIfNotExists("users", "role",
		"TEXT NOT NULL DEFAULT 'regular'"); err != nil {
		return fmt.Errorf("adding role to users: %w", err)
	}

	// LISTING ORDER:
	// The listing id is assigned by the service (max+1) and is not the
	// insertion order once rows are deleted and re-imported. seq records the
	// order rows were written so List matches the CSV backend.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          INTEGER NOT NULL UNIQUE,
			type        TEXT NOT NULL DEFAULT '',
			brand       TEXT NOT NULL DEFAULT '',
			model       TEXT NOT NULL DEFAULT '',
			year        INTEGER NOT NULL DEFAULT 0,
			color       TEXT NOT NULL DEFAULT '',
			mileage     INTEGER NOT NULL DEFAULT 0,
			price       INTEGER NOT NULL DEFAULT 0,
			photo_paths TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_listings_type ON listings(type);
	`)
	if err != nil {
		return fmt.Errorf("creating listings table: %w", err)
	}

	if err := db.addColumnIfNotExists("listings", "is_featured",
		"INTEGER NOT NULL DEFAULT 0"); err != nil {
		return fmt.Errorf("adding is_featured to listings: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
