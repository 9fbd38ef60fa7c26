// Package store persists bank accounts, the type registry and imported
// transactions in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	// Pure Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("not found")

// DB is one connection handle to the statement database. A DB must not be
// shared between the coordinator and an import worker.
type DB struct {
	conn   *sql.DB
	path   string
	logger *log.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS bank_accounts (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	name     TEXT NOT NULL UNIQUE,
	iban     TEXT UNIQUE,
	bank     TEXT NOT NULL DEFAULT '',
	currency TEXT NOT NULL DEFAULT '',
	notes    TEXT NOT NULL DEFAULT '',
	color    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS transaction_types (
	code        TEXT PRIMARY KEY,
	label       TEXT NOT NULL,
	operational INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS transactions (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id    INTEGER NOT NULL REFERENCES bank_accounts(id),
	value_date    TEXT NOT NULL,
	narrative     TEXT NOT NULL,
	amount        TEXT NOT NULL,
	direction     TEXT NOT NULL CHECK (direction IN ('C', 'D')),
	type_code     TEXT REFERENCES transaction_types(code),
	counterparty  TEXT NOT NULL DEFAULT '',
	tax_id        TEXT NOT NULL DEFAULT '',
	invoice       TEXT NOT NULL DEFAULT '',
	terminal_id   TEXT NOT NULL DEFAULT '',
	reference     TEXT NOT NULL DEFAULT '',
	card          TEXT NOT NULL DEFAULT '',
	annotation    TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_dedup
	ON transactions(account_id, value_date, amount, direction, narrative);
`

// Open opens (or creates) the database at path and makes sure the schema exists.
func Open(ctx context.Context, path string, logger *log.Logger) (*DB, error) {
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps transactions and lookups on one SQLite handle.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, path: path, logger: logger}
	if err := db.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	logger.Debug("opened database", "path", path)
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}
	return nil
}

// Close closes the connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
