package memory

import (
	"context"
	"errors"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

var _ vectorstore.Store = (*Storage)(nil)

// Storage is a process-local collection using brute-force cosine similarity.
type Storage struct {
	mu      sync.RWMutex
	created bool
	vectors [][]float32
	chunks  []domain.Chunk
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Exists(context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.created, nil
}

func (s *Storage) Create(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created {
		return errors.New("collection already exists")
	}
	s.chunks = append([]domain.Chunk(nil), chunks...)
	s.vectors = make([][]float32, len(vectors))
	for i, v := range vectors {
		s.vectors[i] = append([]float32(nil), v...)
	}
	s.created = true
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.created {
		return nil, domain.ErrCollectionNotFound
	}
	return vectorstore.Rank(vector, s.chunks, s.vectors, k)
}

func (s *Storage) Drop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = false
	s.vectors = nil
	s.chunks = nil
	return nil
}

func (s *Storage) Close() error { return nil }

// Len returns the number of stored chunks.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}
