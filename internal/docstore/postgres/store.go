// Package postgres implements a document store over PostgreSQL, mirroring
// the sqlite driver's one-row-per-user shape.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"rentledger/internal/docstore"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	driverName = "pgx"
	defaultDSN = "postgres://localhost/rentledger?sslmode=disable"
)

// Store persists documents to a Postgres table keyed by user id.
type Store struct {
	db *sql.DB
}

// New opens a Postgres-backed document store using the provided DSN (falls
// back to defaultDSN) and ensures the documents table exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS documents (
		user_id TEXT PRIMARY KEY,
		payload BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &Store{db: db}, nil
}

// Driver returns the docstore driver identifier.
func (s *Store) Driver() docstore.Driver { return docstore.DriverPostgres }

// Read loads the document row for userID.
func (s *Store) Read(ctx context.Context, userID string) (docstore.Document, bool, error) {
	if userID == "" {
		return docstore.Document{}, false, fmt.Errorf("empty user id")
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE user_id = $1`, userID).Scan(&payload)
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
		`INSERT INTO documents(user_id, payload, updated_at) VALUES($1, $2, now())
		 ON CONFLICT(user_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		userID, payload); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
