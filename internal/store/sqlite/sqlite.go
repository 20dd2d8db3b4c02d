// Package sqlite implements the vector store on a single SQLite database
// file. Vectors are stored as little-endian float32 blobs and queries are
// brute-force cosine scans, which stays fast up to tens of thousands of
// chunks and needs no external service.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hokan/hokan/internal/config"
	"github.com/hokan/hokan/internal/models"
	"github.com/hokan/hokan/internal/store"
	"github.com/hokan/hokan/pkg/utils"
)

func init() {
	store.Register("sqlite", func(cfg config.StoreConfig) (store.Store, error) {
		return Open(cfg.Path)
	})
}

// Store is the SQLite-backed vector store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at dbPath and initializes the schema.
// Parent directories are created when missing.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		dimensions INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		source TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		char_start INTEGER NOT NULL,
		char_end INTEGER NOT NULL,
		vector BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (collection) REFERENCES collections(name) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection);
	CREATE INDEX IF NOT EXISTS idx_chunks_collection_source ON chunks(collection, source);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *Store) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, dimensions) VALUES (?, ?)
		 ON CONFLICT(name) DO NOTHING`, name, dimensions)
	return err
}

func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM collections WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) Upsert(ctx context.Context, collection string, chunks []*models.Chunk, vectors [][]float32) error {
	if err := s.requireCollection(ctx, collection); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, collection, source, chunk_index, content, char_start, char_end, vector)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx,
			chunk.ID, collection, chunk.Source, chunk.Index,
			chunk.Text, chunk.Start, chunk.End, vectorToBytes(vectors[i]),
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Query(ctx context.Context, collection string, vector []float32, k int) ([]models.SearchResult, error) {
	if err := s.requireCollection(ctx, collection); err != nil {
		return nil, err
	}
	// rowid order keeps ties deterministic: earlier-inserted chunks rank first.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, chunk_index, content, char_start, char_end, vector
		 FROM chunks WHERE collection = ? ORDER BY rowid`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var chunk models.Chunk
		var blob []byte
		if err := rows.Scan(&chunk.ID, &chunk.Source, &chunk.Index, &chunk.Text, &chunk.Start, &chunk.End, &blob); err != nil {
			return nil, err
		}
		results = append(results, models.SearchResult{
			Chunk: chunk,
			Score: utils.CosineSimilarity(vector, bytesToVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k < len(results) {
		results = results[:k]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

func (s *Store) DeleteBySource(ctx context.Context, collection, source string) (int, error) {
	if err := s.requireCollection(ctx, collection); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE collection = ? AND source = ?`, collection, source)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) SourceCounts(ctx context.Context, collection string) (map[string]int, error) {
	if err := s.requireCollection(ctx, collection); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, COUNT(*) FROM chunks WHERE collection = ? GROUP BY source`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, err
		}
		counts[source] = n
	}
	return counts, rows.Err()
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	if err := s.requireCollection(ctx, collection); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE collection = ?`, collection).Scan(&n)
	return n, err
}

func (s *Store) Clear(ctx context.Context, collection string) error {
	if err := s.requireCollection(ctx, collection); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, collection)
	return err
}

func (s *Store) Drop(ctx context.Context, collection string) error {
	if err := s.requireCollection(ctx, collection); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, collection); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, collection); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) requireCollection(ctx context.Context, name string) error {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrCollectionNotFound
	}
	return nil
}

// vectorToBytes serializes a float32 slice as little-endian bytes.
func vectorToBytes(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// bytesToVector is the inverse of vectorToBytes.
func bytesToVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
