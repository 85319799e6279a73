package rag

import (
	"fmt"
	"sync"

	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
	"github.com/xxxsen/licitarag/internal/vectorindex"
)

// Entry is one ingested document. Embeddings[i] belongs to Chunks[i] and
// Index is built from Embeddings.
type Entry struct {
	ID         string
	Chunks     []string
	Embeddings [][]float32
	Index      *vectorindex.Index
	Content    string
	Metadata   map[string]string
}

func newEntry(id string, chunks []string, embeddings [][]float32, content string, metadata map[string]string) (*Entry, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s has no chunks", id)
	}
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("document %s has %d chunks but %d embeddings", id, len(chunks), len(embeddings))
	}
	idx, err := vectorindex.FromMatrix(embeddings)
	if err != nil {
		return nil, fmt.Errorf("build index for %s: %w", id, err)
	}
	return &Entry{
		ID:         id,
		Chunks:     chunks,
		Embeddings: idx.Vectors(),
		Index:      idx,
		Content:    content,
		Metadata:   metadata,
	}, nil
}

// DocumentStore owns every ingested entry for the life of the process.
// Entries are insert-only and are never evicted.
type DocumentStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	pending map[string]struct{}
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		entries: make(map[string]*Entry),
		pending: make(map[string]struct{}),
	}
}

// Reserve claims id for an ingest in progress. Readers see the id as
// missing until Put completes it.
func (s *DocumentStore) Reserve(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		return fmt.Errorf("document %s already ingested: %w", id, appErr.ErrConflict)
	}
	if _, ok := s.pending[id]; ok {
		return fmt.Errorf("document %s is being ingested: %w", id, appErr.ErrConflict)
	}
	s.pending[id] = struct{}{}
	return nil
}

// Release drops a reservation that will not be completed.
func (s *DocumentStore) Release(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *DocumentStore) Put(e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; ok {
		return fmt.Errorf("document %s already ingested: %w", e.ID, appErr.ErrConflict)
	}
	delete(s.pending, e.ID)
	s.entries[e.ID] = e
	return nil
}

func (s *DocumentStore) Get(id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, appErr.ErrNotFound)
	}
	return e, nil
}

func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
