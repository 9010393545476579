package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite declaration index: source files, the classes they
// declare, their supertype clauses and imports.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  package         TEXT NOT NULL DEFAULT '',
  hash            TEXT,
  decl_hash       TEXT,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS classes (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  name            TEXT NOT NULL UNIQUE,
  kind            TEXT NOT NULL,
  is_interface    BOOLEAN NOT NULL DEFAULT FALSE,
  modifiers       TEXT,
  start_line      INTEGER,
  outer_class_id  INTEGER REFERENCES classes(id)
);

CREATE TABLE IF NOT EXISTS supertypes (
  id              INTEGER PRIMARY KEY,
  class_id        INTEGER NOT NULL REFERENCES classes(id),
  relation        TEXT NOT NULL CHECK (relation IN ('extends', 'implements')),
  ordinal         INTEGER NOT NULL,
  type_expr       TEXT NOT NULL,
  resolved_name   TEXT
);

CREATE TABLE IF NOT EXISTS imports (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  source          TEXT NOT NULL,
  is_static       BOOLEAN DEFAULT FALSE,
  is_wildcard     BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

CREATE INDEX IF NOT EXISTS idx_files_package ON files(package);
CREATE INDEX IF NOT EXISTS idx_classes_file ON classes(file_id);
CREATE INDEX IF NOT EXISTS idx_classes_outer ON classes(outer_class_id);
CREATE INDEX IF NOT EXISTS idx_supertypes_class ON supertypes(class_id);
CREATE INDEX IF NOT EXISTS idx_supertypes_resolved ON supertypes(resolved_name);
CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file_id);
`

// DeleteFileData transactionally removes a file and everything extracted
// from it. Deletes in reverse-dependency order to respect FK constraints.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM supertypes WHERE class_id IN (SELECT id FROM classes WHERE file_id = ?)",
		// Nested classes point at their outer class; clear the self
		// reference before deleting the rows.
		"UPDATE classes SET outer_class_id = NULL WHERE file_id = ?",
		"DELETE FROM classes WHERE file_id = ?",
		"DELETE FROM imports WHERE file_id = ?",
		"DELETE FROM files WHERE id = ?",
	} {
		if _, err := tx.Exec(q, fileID); err != nil {
			return fmt.Errorf("delete file data: %w", err)
		}
	}
	return tx.Commit()
}

// Stats summarizes the index contents.
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{}
	err := s.db.QueryRow(`SELECT
		(SELECT COUNT(*) FROM files),
		(SELECT COUNT(*) FROM classes),
		(SELECT COUNT(*) FROM classes WHERE is_interface),
		(SELECT COUNT(*) FROM supertypes),
		(SELECT COUNT(*) FROM supertypes WHERE resolved_name IS NULL)`,
	).Scan(&st.Files, &st.Classes, &st.Interfaces, &st.Supertypes, &st.Unresolved)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// GetMetadata returns the value stored under key, or "" when absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var v sql.NullString
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %s: %w", key, err)
	}
	return v.String, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}
