// Package sqlite implements a document store over an embedded SQLite file:
// one row per user holding the serialized document.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"rentledger/internal/docstore"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Store persists documents to a single SQLite table as JSON blobs.
type Store struct {
	db   *sql.DB
	path string
}

// New constructs a SQLite-backed document store at path, creating the file
// and schema as needed.
func New(path string) (*Store, error) {
	if path == "" {
		path = "rentledger.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		user_id TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Driver returns the docstore driver identifier.
func (s *Store) Driver() docstore.Driver { return docstore.DriverSQLite }

// Read loads the document row for userID.
func (s *Store) Read(ctx context.Context, userID string) (docstore.Document, bool, error) {
	if userID == "" {
		return docstore.Document{}, false, fmt.Errorf("empty user id")
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE user_id = ?`, userID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.Document{}, false, nil
	}
	if err != nil {
		return docstore.Document{}, false, fmt.Errorf("select document: %w", err)
	}
	var doc docstore.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return docstore.Document{}, false, fmt.Errorf("decode document: %w", err)
	}
	return doc, true, nil
}

// Write upserts the document row for userID.
func (s *Store) Write(ctx context.Context, userID string, doc docstore.Document) error {
	if userID == "" {
		return fmt.Errorf("empty user id")
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents(user_id, payload, updated_at) VALUES(?, ?, datetime('now'))
		 ON CONFLICT(user_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		userID, payload); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
