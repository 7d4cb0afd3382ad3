// Package fs implements a filesystem-backed document store: one JSON file
// per user under a root directory, written atomically via rename.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"rentledger/internal/docstore"
)

// Store implements docstore.Store using the local filesystem. It is
// intentionally simple and not concurrent-writer safe beyond the atomicity
// of a same-directory rename.
type Store struct {
	root string
}

// New returns a filesystem document store rooted at path, creating it if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./rentledger-data"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

// Driver returns the docstore driver identifier.
func (s *Store) Driver() docstore.Driver { return docstore.DriverFilesystem }

// sanitizeUserID rejects ids that would escape the root or collide with
// path syntax.
func sanitizeUserID(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("empty user id")
	}
	if strings.ContainsAny(userID, "/\\") || strings.Contains(userID, "..") {
		return "", fmt.Errorf("invalid user id %q", userID)
	}
	return userID, nil
}

func (s *Store) pathFor(userID string) (string, error) {
	id, err := sanitizeUserID(userID)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, id+".json"), nil
}

// Read loads the document for userID; absent files report ok=false.
func (s *Store) Read(_ context.Context, userID string) (docstore.Document, bool, error) {
	path, err := s.pathFor(userID)
	if err != nil {
		return docstore.Document{}, false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return docstore.Document{}, false, nil
	}
	if err != nil {
		return docstore.Document{}, false, fmt.Errorf("read document: %w", err)
	}
	var doc docstore.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return docstore.Document{}, false, fmt.Errorf("decode document: %w", err)
	}
	return doc, true, nil
}

// Write replaces the document for userID, staging through a temp file so a
// crashed write never leaves a truncated document behind.
func (s *Store) Write(_ context.Context, userID string, doc docstore.Document) error {
	path, err := s.pathFor(userID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	tmp, err := os.CreateTemp(s.root, ".doc-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
