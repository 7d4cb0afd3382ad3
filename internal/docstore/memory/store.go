// Package memory implements an in-memory document store for tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"rentledger/internal/docstore"
)

// Store implements docstore.Store backed by process memory.
type Store struct {
	mu   sync.RWMutex
	docs map[string]docstore.Document
}

// New returns an empty in-memory document store.
func New() *Store {
	return &Store{docs: make(map[string]docstore.Document)}
}

// Driver returns the docstore driver identifier.
func (s *Store) Driver() docstore.Driver { return docstore.DriverMemory }

// Read returns the stored document for userID, if any.
func (s *Store) Read(_ context.Context, userID string) (docstore.Document, bool, error) {
	if userID == "" {
		return docstore.Document{}, false, fmt.Errorf("empty user id")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[userID]
	if !ok {
		return docstore.Document{}, false, nil
	}
	return doc.Clone(), true, nil
}

// Write overwrites the stored document for userID.
func (s *Store) Write(_ context.Context, userID string, doc docstore.Document) error {
	if userID == "" {
		return fmt.Errorf("empty user id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[userID] = doc.Clone()
	return nil
}
