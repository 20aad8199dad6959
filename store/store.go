// Package store holds the canonical document shared by every client.
package store

import (
	"sync"
	"time"

	"github.com/burntcarrot/slatepad/merge"
)

// Store is the in-memory canonical document. It is only ever replaced as a whole.
// Nothing is persisted; the document is lost when the process exits.
type Store struct {
	mu        sync.RWMutex // protects the fields below
	doc       merge.Document
	version   int
	updatedAt time.Time
}

// New returns a store holding initial, or merge.NewDocument() if initial is nil.
func New(initial merge.Document) *Store {
	if initial == nil {
		initial = merge.NewDocument()
	}
	return &Store{doc: initial.Clone(), updatedAt: time.Now()}
}

// Current returns a copy of the canonical document.
func (s *Store) Current() merge.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Replace swaps in a new canonical document and returns the new version.
func (s *Store) Replace(doc merge.Document) int {
	doc = doc.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.version++
	s.updatedAt = time.Now()
	return s.version
}

// Version counts how many times the document has been replaced.
func (s *Store) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// UpdatedAt returns when the document was last replaced.
func (s *Store) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
