// Package manager orchestrates indexing and retrieval: it walks paths,
// extracts text, chunks it, embeds the chunks, and talks to the vector store.
package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hokan/hokan/internal/chunker"
	"github.com/hokan/hokan/internal/embedding"
	"github.com/hokan/hokan/internal/extract"
	"github.com/hokan/hokan/internal/models"
	"github.com/hokan/hokan/internal/store"
)

// Manager ties the pipeline together. One Manager serves any number of
// collections; the collection name is an argument on every operation.
type Manager struct {
	store     store.Store
	embedder  embedding.Embedder
	chunker   *chunker.Chunker
	batchSize int
	logger    *zap.Logger // optional; when set, logs per-file progress
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets a logger for progress and debug output.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithBatchSize bounds how many chunks are embedded and upserted per call.
func WithBatchSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

// New creates a manager from its dependencies.
func New(st store.Store, embedder embedding.Embedder, ch *chunker.Chunker, opts ...Option) *Manager {
	m := &Manager{
		store:     st,
		embedder:  embedder,
		chunker:   ch,
		batchSize: 32,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadCollection creates the collection if it does not exist yet, sized to the
// embedder's dimensions.
func (m *Manager) LoadCollection(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("collection name must not be empty")
	}
	return m.store.EnsureCollection(ctx, name, m.embedder.Dimensions())
}

// IndexDocuments indexes the given paths into the collection, creating it on
// first use. Paths may mix files and directories; directories are walked
// recursively and files with unsupported extensions inside them are skipped
// silently. A file that fails to read, extract, or embed is recorded in the
// report and the batch continues. Indexing is additive: re-indexing a file
// adds new chunks next to the old ones.
func (m *Manager) IndexDocuments(ctx context.Context, collection string, paths []string) (*models.IndexReport, error) {
	if err := m.LoadCollection(ctx, collection); err != nil {
		return nil, err
	}

	report := &models.IndexReport{Collection: collection}
	files := m.collectFiles(paths, report)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		added, err := m.indexFile(ctx, collection, path)
		if err != nil {
			report.Failed(path, err)
			if m.logger != nil {
				m.logger.Warn("failed to index file", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		report.FilesIndexed++
		report.ChunksAdded += added
		if m.logger != nil {
			m.logger.Debug("indexed file",
				zap.String("path", path),
				zap.Int("chunks", added))
		}
	}
	return report, nil
}

// collectFiles expands paths into a flat list of indexable files. A path
// named explicitly must exist and carry a supported extension; directory
// entries are filtered without complaint.
func (m *Manager) collectFiles(paths []string, report *models.IndexReport) []string {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			report.Failed(path, err)
			continue
		}
		if !info.IsDir() {
			if !extract.SupportedForPath(path) {
				report.Failed(path, fmt.Errorf("unsupported file type %q", filepath.Ext(path)))
				continue
			}
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				report.Failed(p, err)
				return nil
			}
			if !d.IsDir() && extract.SupportedForPath(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			report.Failed(path, err)
		}
	}
	return files
}

func (m *Manager) indexFile(ctx context.Context, collection, path string) (int, error) {
	text, err := extract.Extract(path)
	if err != nil {
		return 0, err
	}

	source := filepath.Base(path)
	pieces := m.chunker.Split(text)
	if len(pieces) == 0 {
		return 0, nil
	}

	chunks := make([]*models.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = &models.Chunk{
			ID:     uuid.NewString(),
			Source: source,
			Index:  i,
			Text:   p.Text,
			Start:  p.Start,
			End:    p.End,
		}
	}

	for start := 0; start < len(chunks); start += m.batchSize {
		end := start + m.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := m.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed chunks: %w", err)
		}
		if err := m.store.Upsert(ctx, collection, batch, vectors); err != nil {
			return 0, fmt.Errorf("store chunks: %w", err)
		}
	}
	return len(chunks), nil
}

// Search embeds the query and returns up to k results ordered by descending
// cosine similarity. Asking for more results than the collection holds
// returns everything it has.
func (m *Manager) Search(ctx context.Context, collection, query string, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	exists, err := m.store.CollectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("collection %q: %w", collection, store.ErrCollectionNotFound)
	}

	vector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return m.store.Query(ctx, collection, vector, k)
}

// ListCollections returns the names of all collections.
func (m *Manager) ListCollections(ctx context.Context) ([]string, error) {
	return m.store.ListCollections(ctx)
}

// CollectionInfo returns chunk and source-file statistics for the collection.
func (m *Manager) CollectionInfo(ctx context.Context, name string) (*models.CollectionInfo, error) {
	counts, err := m.store.SourceCounts(ctx, name)
	if err != nil {
		return nil, err
	}
	total, err := m.store.Count(ctx, name)
	if err != nil {
		return nil, err
	}
	return &models.CollectionInfo{
		Name:        name,
		TotalChunks: total,
		FileCount:   len(counts),
		SourceFiles: counts,
	}, nil
}

// DeleteBySource removes every chunk whose source filename matches exactly and
// returns the number removed. Zero means no chunk matched; that is not an error.
func (m *Manager) DeleteBySource(ctx context.Context, collection, source string) (int, error) {
	deleted, err := m.store.DeleteBySource(ctx, collection, source)
	if err != nil {
		return 0, err
	}
	if m.logger != nil {
		m.logger.Info("deleted chunks by source",
			zap.String("collection", collection),
			zap.String("source", source),
			zap.Int("deleted", deleted))
	}
	return deleted, nil
}

// Clear removes every chunk but keeps the collection. It runs only when
// confirmed is true; otherwise it reports false with no error, meaning the
// operation was declined rather than failed.
func (m *Manager) Clear(ctx context.Context, collection string, confirmed bool) (bool, error) {
	if !confirmed {
		return false, nil
	}
	if err := m.store.Clear(ctx, collection); err != nil {
		return false, err
	}
	if m.logger != nil {
		m.logger.Info("cleared collection", zap.String("collection", collection))
	}
	return true, nil
}

// Drop removes the collection entirely. Confirmation semantics match Clear.
func (m *Manager) Drop(ctx context.Context, collection string, confirmed bool) (bool, error) {
	if !confirmed {
		return false, nil
	}
	if err := m.store.Drop(ctx, collection); err != nil {
		return false, err
	}
	if m.logger != nil {
		m.logger.Info("dropped collection", zap.String("collection", collection))
	}
	return true, nil
}
