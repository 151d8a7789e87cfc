// Package memory is a process-local trace store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tracetree/internal/storage"
)

type Store struct {
	mu      sync.RWMutex
	records map[string]*storage.Record
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{records: make(map[string]*storage.Record)}
}

func (s *Store) Put(_ context.Context, r *storage.Record) error {
	storage.Prepare(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[r.ID]; exists {
		return fmt.Errorf("trace %s already exists", r.ID)
	}
	cp := *r
	s.records[r.ID] = &cp
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, storage.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (s *Store) List(_ context.Context) ([]storage.Summary, error) {
	s.mu.RLock()
	out := make([]storage.Summary, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Summary())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%s: %w", id, storage.ErrNotFound)
	}
	delete(s.records, id)
	return nil
}

func (s *Store) Close() error { return nil }
