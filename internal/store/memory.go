package store

import (
	"context"
	"sync"
)

type collection struct {
	docs []Document
	seen map[string]struct{} // idempotencia por id
}

type MemoryStore struct {
	mu   sync.RWMutex
	cols map[string]*collection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cols: make(map[string]*collection)}
}

func (s *MemoryStore) Reset(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cols, name)
	return nil
}

func (s *MemoryStore) Add(_ context.Context, name string, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cols[name]
	if !ok {
		c = &collection{seen: make(map[string]struct{})}
		s.cols[name] = c
	}
	for _, d := range docs {
		if _, dup := c.seen[d.ID]; dup {
			continue
		}
		c.seen[d.ID] = struct{}{}
		c.docs = append(c.docs, d)
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, name string, v []float32, k int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cols[name]
	if !ok {
		return nil, nil
	}
	return topK(c.docs, v, k), nil
}

// Count reports how many documents a collection holds.
func (s *MemoryStore) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.cols[name]; ok {
		return len(c.docs)
	}
	return 0
}

func (s *MemoryStore) Close() error { return nil }
