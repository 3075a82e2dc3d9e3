// Package memstore is a process-local Store used for development and tests.
// Records live in a map guarded by an RWMutex; nothing survives a restart.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/yanizio/libretv-sites/internal/site"
	"github.com/yanizio/libretv-sites/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu    sync.RWMutex
	sites map[string]site.Record
}

func New() *Store {
	return &Store{sites: make(map[string]site.Record, 32)}
}

func (s *Store) FindOne(_ context.Context, id string) (*site.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sites[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

// FindAll returns records ordered by id so listings are stable.
func (s *Store) FindAll(_ context.Context) ([]site.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]site.Record, 0, len(s.sites))
	for _, rec := range s.sites {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Insert(_ context.Context, rec site.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sites[rec.ID]; ok {
		return store.ErrConflict
	}
	s.sites[rec.ID] = rec
	return nil
}

func (s *Store) UpdateFields(_ context.Context, id string, f site.Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sites[id]
	if !ok {
		return store.ErrNotFound
	}
	s.sites[id] = rec.Apply(f)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sites[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.sites, id)
	return nil
}

func (s *Store) EnsureSchema(context.Context) error { return nil }
func (s *Store) Close() error                       { return nil }
