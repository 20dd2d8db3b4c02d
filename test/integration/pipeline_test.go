// Package integration exercises the full pipeline against the real SQLite
// store: extract, chunk, embed, store, search, delete.
package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hokan/hokan/internal/chunker"
	"github.com/hokan/hokan/internal/embedding"
	"github.com/hokan/hokan/internal/manager"
	"github.com/hokan/hokan/internal/store"
	"github.com/hokan/hokan/internal/store/sqlite"
)

func TestIntegration_IndexSearchDelete(t *testing.T) {
	dir := t.TempDir()

	st, err := sqlite.Open(filepath.Join(dir, "collections.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	embedder := embedding.NewMock(32)
	defer embedder.Close()

	ch, err := chunker.New(200, 20)
	if err != nil {
		t.Fatal(err)
	}
	mgr := manager.New(st, embedder, ch, manager.WithBatchSize(4))
	ctx := context.Background()

	docs := filepath.Join(dir, "docs")
	if err := os.MkdirAll(docs, 0755); err != nil {
		t.Fatal(err)
	}
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(docs, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("ml.md", "Machine learning algorithms learn patterns from data. Training improves the model over time.")
	write("search.txt", "Semantic search uses embeddings to find content by meaning rather than exact words.")

	report, err := mgr.IndexDocuments(ctx, "kb", []string{docs})
	if err != nil {
		t.Fatal(err)
	}
	if report.FilesIndexed != 2 || len(report.Failures) != 0 {
		t.Fatalf("report = %+v", report)
	}

	results, err := mgr.Search(ctx, "kb", "Semantic search uses embeddings to find content by meaning rather than exact words.", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	// The mock embedder is exact-text deterministic: the identical text must win.
	if results[0].Chunk.Source != "search.txt" {
		t.Errorf("top source = %q, want search.txt", results[0].Chunk.Source)
	}

	info, err := mgr.CollectionInfo(ctx, "kb")
	if err != nil {
		t.Fatal(err)
	}
	if info.FileCount != 2 || info.TotalChunks != report.ChunksAdded {
		t.Errorf("info = %+v, report = %+v", info, report)
	}

	deleted, err := mgr.DeleteBySource(ctx, "kb", "ml.md")
	if err != nil {
		t.Fatal(err)
	}
	if deleted == 0 {
		t.Error("nothing deleted for ml.md")
	}

	done, err := mgr.Drop(ctx, "kb", true)
	if err != nil || !done {
		t.Fatalf("drop: done=%v err=%v", done, err)
	}
	if _, err := mgr.Search(ctx, "kb", "anything", 1); !errors.Is(err, store.ErrCollectionNotFound) {
		t.Errorf("search after drop: %v", err)
	}
}
