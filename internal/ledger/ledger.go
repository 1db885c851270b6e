// Package ledger records which vault file produced which indexed post, and
// the checksum of the bytes last indexed, in a small SQLite database.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/smark/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS files (
	root       TEXT NOT NULL,
	path       TEXT NOT NULL,
	uuid       TEXT NOT NULL,
	checksum   TEXT NOT NULL DEFAULT '',
	indexed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (root, path)
);

CREATE INDEX IF NOT EXISTS idx_files_uuid ON files(uuid);
`

// Entry is one tracked vault file. Path is relative to the vault root.
type Entry struct {
	Path      string
	UUID      string
	Checksum  string
	IndexedAt time.Time
}

// DB wraps a sql.DB with ledger operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the ledger database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Vault is the part of the ledger belonging to one vault directory. Several
// vaults may feed the same index; each only sees and prunes its own files.
type Vault struct {
	db   *DB
	root string
}

// Vault returns the view of the vault rooted at root. Relative roots are
// resolved against the working directory.
func (db *DB) Vault(root string) *Vault {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Vault{db: db, root: filepath.Clean(root)}
}

// Root is the absolute vault directory.
func (v *Vault) Root() string { return v.root }

// Record inserts or replaces the entry for e.Path.
func (v *Vault) Record(e Entry) error {
	if e.IndexedAt.IsZero() {
		e.IndexedAt = time.Now().UTC()
	}
	_, err := v.db.conn.Exec(`
		INSERT INTO files (root, path, uuid, checksum, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(root, path) DO UPDATE SET
			uuid       = excluded.uuid,
			checksum   = excluded.checksum,
			indexed_at = excluded.indexed_at
	`, v.root, e.Path, e.UUID, e.Checksum, e.IndexedAt)
	if err != nil {
		return fmt.Errorf("ledger: record %s: %w", e.Path, err)
	}
	return nil
}

// Get returns the entry for path or apperr.ErrNotFound.
func (v *Vault) Get(path string) (*Entry, error) {
	var e Entry
	err := v.db.conn.QueryRow(`SELECT path, uuid, checksum, indexed_at FROM files WHERE root = ? AND path = ?`, v.root, path).
		Scan(&e.Path, &e.UUID, &e.Checksum, &e.IndexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger: %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get %s: %w", path, err)
	}
	return &e, nil
}

// Forget removes the entry for path. Missing entries are not an error.
func (v *Vault) Forget(path string) error {
	if _, err := v.db.conn.Exec(`DELETE FROM files WHERE root = ? AND path = ?`, v.root, path); err != nil {
		return fmt.Errorf("ledger: forget %s: %w", path, err)
	}
	return nil
}

// All returns every entry of the vault keyed by path.
func (v *Vault) All() (map[string]Entry, error) {
	rows, err := v.db.conn.Query(`SELECT path, uuid, checksum, indexed_at FROM files WHERE root = ?`, v.root)
	if err != nil {
		return nil, fmt.Errorf("ledger: all: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Entry)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.UUID, &e.Checksum, &e.IndexedAt); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		out[e.Path] = e
	}
	return out, rows.Err()
}

// PathsForUUID lists the files, in any vault, that currently claim uuid.
// The result holds absolute paths.
func (v *Vault) PathsForUUID(uuid string) ([]string, error) {
	rows, err := v.db.conn.Query(`SELECT root, path FROM files WHERE uuid = ? ORDER BY root, path`, uuid)
	if err != nil {
		return nil, fmt.Errorf("ledger: paths for %s: %w", uuid, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var root, p string
		if err := rows.Scan(&root, &p); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		out = append(out, filepath.Join(root, p))
	}
	return out, rows.Err()
}

// Reset drops every entry of every vault. Used when the index is rebuilt from scratch.
func (db *DB) Reset() error {
	if _, err := db.conn.Exec(`DELETE FROM files`); err != nil {
		return fmt.Errorf("ledger: reset: %w", err)
	}
	return nil
}
