// Package store defines the vector store abstraction and its drivers. A store
// holds named collections of embedded chunks and answers similarity queries
// against them.
package store

import (
	"context"
	"errors"

	"github.com/hokan/hokan/internal/models"
)

// ErrCollectionNotFound is returned by operations addressing a collection that
// does not exist. Callers match it with errors.Is.
var ErrCollectionNotFound = errors.New("collection not found")

// Store is the persistence contract shared by all drivers. Scores returned by
// Query are cosine similarities: higher means more similar, 1.0 is identical
// direction. Implementations must be safe for concurrent use.
type Store interface {
	// EnsureCollection creates the collection if missing. Creating an existing
	// collection is a no-op so concurrent indexers can race safely.
	EnsureCollection(ctx context.Context, name string, dimensions int) error

	CollectionExists(ctx context.Context, name string) (bool, error)

	ListCollections(ctx context.Context) ([]string, error)

	// Upsert appends chunks with their vectors. Chunks are always added, never
	// deduplicated; re-indexing the same file grows the collection.
	Upsert(ctx context.Context, collection string, chunks []*models.Chunk, vectors [][]float32) error

	// Query returns up to k results ordered by descending similarity. Fewer
	// than k results are returned when the collection holds fewer chunks.
	Query(ctx context.Context, collection string, vector []float32, k int) ([]models.SearchResult, error)

	// DeleteBySource removes every chunk whose source filename matches exactly
	// and reports how many were removed. Zero with a nil error means nothing
	// matched.
	DeleteBySource(ctx context.Context, collection, source string) (int, error)

	// SourceCounts returns the number of stored chunks per source filename.
	SourceCounts(ctx context.Context, collection string) (map[string]int, error)

	Count(ctx context.Context, collection string) (int, error)

	// Clear removes all chunks but keeps the collection itself.
	Clear(ctx context.Context, collection string) error

	// Drop removes the collection entirely.
	Drop(ctx context.Context, collection string) error

	Close() error
}
