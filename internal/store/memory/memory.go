// Package memory implements an in-process vector store. It backs tests and
// throwaway sessions; nothing survives the process.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hokan/hokan/internal/config"
	"github.com/hokan/hokan/internal/models"
	"github.com/hokan/hokan/internal/store"
	"github.com/hokan/hokan/pkg/utils"
)

func init() {
	store.Register("memory", func(config.StoreConfig) (store.Store, error) {
		return New(), nil
	})
}

type record struct {
	chunk  models.Chunk
	vector []float32
}

type collection struct {
	dimensions int
	records    []record
}

// Store keeps collections in a map guarded by one RWMutex; queries are
// brute-force cosine scans in insertion order.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) EnsureCollection(_ context.Context, name string, dimensions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = &collection{dimensions: dimensions}
	}
	return nil
}

func (s *Store) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *Store) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Upsert(_ context.Context, name string, chunks []*models.Chunk, vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[name]
	if !ok {
		return store.ErrCollectionNotFound
	}
	for i, chunk := range chunks {
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		coll.records = append(coll.records, record{chunk: *chunk, vector: vec})
	}
	return nil
}

func (s *Store) Query(_ context.Context, name string, vector []float32, k int) ([]models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, ok := s.collections[name]
	if !ok {
		return nil, store.ErrCollectionNotFound
	}

	results := make([]models.SearchResult, 0, len(coll.records))
	for _, rec := range coll.records {
		results = append(results, models.SearchResult{
			Chunk: rec.chunk,
			Score: utils.CosineSimilarity(vector, rec.vector),
		})
	}
	// Stable keeps insertion order among equal scores.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k < len(results) {
		results = results[:k]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

func (s *Store) DeleteBySource(_ context.Context, name, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[name]
	if !ok {
		return 0, store.ErrCollectionNotFound
	}
	kept := coll.records[:0]
	deleted := 0
	for _, rec := range coll.records {
		if rec.chunk.Source == source {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	coll.records = kept
	return deleted, nil
}

func (s *Store) SourceCounts(_ context.Context, name string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, ok := s.collections[name]
	if !ok {
		return nil, store.ErrCollectionNotFound
	}
	counts := make(map[string]int)
	for _, rec := range coll.records {
		counts[rec.chunk.Source]++
	}
	return counts, nil
}

func (s *Store) Count(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, ok := s.collections[name]
	if !ok {
		return 0, store.ErrCollectionNotFound
	}
	return len(coll.records), nil
}

func (s *Store) Clear(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[name]
	if !ok {
		return store.ErrCollectionNotFound
	}
	coll.records = nil
	return nil
}

func (s *Store) Drop(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		return store.ErrCollectionNotFound
	}
	delete(s.collections, name)
	return nil
}

func (s *Store) Close() error {
	return nil
}
