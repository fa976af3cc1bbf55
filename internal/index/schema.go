// Package index provides a SQLite-backed index of notes and the links between them.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	vault      TEXT NOT NULL,
	fname      TEXT NOT NULL,
	path       TEXT NOT NULL,
	note_id    TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (vault, fname)
);

CREATE TABLE IF NOT EXISTS links (
	src_vault TEXT NOT NULL,
	src_fname TEXT NOT NULL,
	dst_vault TEXT NOT NULL,
	dst_fname TEXT NOT NULL,
	UNIQUE(src_vault, src_fname, dst_vault, dst_fname)
);

CREATE INDEX IF NOT EXISTS idx_notes_id ON notes(note_id);
CREATE INDEX IF NOT EXISTS idx_links_src ON links(src_vault, src_fname);
CREATE INDEX IF NOT EXISTS idx_links_dst ON links(dst_vault, dst_fname);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping() error {
	return db.conn.Ping()
}
