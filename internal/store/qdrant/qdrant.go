// Package qdrant implements the vector store on a Qdrant server over gRPC.
// It suits collections too large for the embedded SQLite scan or shared
// between machines.
package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/hokan/hokan/internal/config"
	"github.com/hokan/hokan/internal/models"
	"github.com/hokan/hokan/internal/store"
)

func init() {
	store.Register("qdrant", func(cfg config.StoreConfig) (store.Store, error) {
		return Open(cfg.URL, cfg.APIKey)
	})
}

const (
	defaultPort = 6334

	// Facet pagination cap; collections with more distinct sources than this
	// get truncated counts, which is acceptable for a status display.
	maxFacetSources = 10000
)

// Store talks to a Qdrant server. Chunk metadata lives in the point payload
// under the same keys the JSON model uses.
type Store struct {
	client *qdrant.Client
}

// Open connects to the server at rawURL ("host:port" or a full URL; https
// enables TLS). The connection is lazy, so Open succeeding does not prove the
// server is reachable.
func Open(rawURL, apiKey string) (*Store, error) {
	host, port, useTLS, err := parseURL(rawURL)
	if err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant: %w", err)
	}
	return &Store{client: client}, nil
}

func parseURL(rawURL string) (host string, port int, useTLS bool, err error) {
	if rawURL == "" {
		return "", 0, false, fmt.Errorf("qdrant store requires a url")
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, false, fmt.Errorf("parse qdrant url: %w", err)
	}
	port = defaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, false, fmt.Errorf("parse qdrant port: %w", err)
		}
	}
	return u.Hostname(), port, u.Scheme == "https", nil
}

func (s *Store) EnsureCollection(ctx context.Context, name string, dimensions int) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %q: %w", name, err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %q: %w", name, err)
	}
	return nil
}

func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	return s.client.CollectionExists(ctx, name)
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	return s.client.ListCollections(ctx)
}

func (s *Store) Upsert(ctx context.Context, collection string, chunks []*models.Chunk, vectors [][]float32) error {
	if err := s.requireCollection(ctx, collection); err != nil {
		return err
	}
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"source":      chunk.Source,
				"chunk_index": int64(chunk.Index),
				"text":        chunk.Text,
				"char_start":  int64(chunk.Start),
				"char_end":    int64(chunk.End),
			}),
		}
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, vector []float32, k int) ([]models.SearchResult, error) {
	if err := s.requireCollection(ctx, collection); err != nil {
		return nil, err
	}
	limit := uint64(k)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query collection %q: %w", collection, err)
	}

	results := make([]models.SearchResult, 0, len(points))
	for i, point := range points {
		results = append(results, models.SearchResult{
			Chunk: chunkFromPayload(point),
			Score: float64(point.Score),
			Rank:  i + 1,
		})
	}
	return results, nil
}

func chunkFromPayload(point *qdrant.ScoredPoint) models.Chunk {
	payload := point.Payload
	chunk := models.Chunk{ID: point.Id.GetUuid()}
	if v, ok := payload["source"]; ok {
		chunk.Source = v.GetStringValue()
	}
	if v, ok := payload["chunk_index"]; ok {
		chunk.Index = int(v.GetIntegerValue())
	}
	if v, ok := payload["text"]; ok {
		chunk.Text = v.GetStringValue()
	}
	if v, ok := payload["char_start"]; ok {
		chunk.Start = int(v.GetIntegerValue())
	}
	if v, ok := payload["char_end"]; ok {
		chunk.End = int(v.GetIntegerValue())
	}
	return chunk
}

func sourceFilter(source string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch("source", source)},
	}
}

func (s *Store) DeleteBySource(ctx context.Context, collection, source string) (int, error) {
	if err := s.requireCollection(ctx, collection); err != nil {
		return 0, err
	}
	filter := sourceFilter(source)
	// Count first: the delete response does not report how many points matched.
	matched, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Filter:         filter,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("count points for source %q: %w", source, err)
	}
	if matched == 0 {
		return 0, nil
	}
	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("delete points for source %q: %w", source, err)
	}
	return int(matched), nil
}

func (s *Store) SourceCounts(ctx context.Context, collection string) (map[string]int, error) {
	if err := s.requireCollection(ctx, collection); err != nil {
		return nil, err
	}
	hits, err := s.client.Facet(ctx, &qdrant.FacetCounts{
		CollectionName: collection,
		Key:            "source",
		Exact:          qdrant.PtrOf(true),
		Limit:          qdrant.PtrOf(uint64(maxFacetSources)),
	})
	if err != nil {
		return nil, fmt.Errorf("facet sources: %w", err)
	}
	counts := make(map[string]int, len(hits))
	for _, hit := range hits {
		counts[hit.Value.GetStringValue()] = int(hit.Count)
	}
	return counts, nil
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	if err := s.requireCollection(ctx, collection); err != nil {
		return 0, err
	}
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("count collection %q: %w", collection, err)
	}
	return int(n), nil
}

func (s *Store) Clear(ctx context.Context, collection string) error {
	if err := s.requireCollection(ctx, collection); err != nil {
		return err
	}
	// An empty filter matches every point; the collection itself survives.
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelectorFilter(&qdrant.Filter{}),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("clear collection %q: %w", collection, err)
	}
	return nil
}

func (s *Store) Drop(ctx context.Context, collection string) error {
	if err := s.requireCollection(ctx, collection); err != nil {
		return err
	}
	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("drop collection %q: %w", collection, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) requireCollection(ctx context.Context, name string) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrCollectionNotFound
	}
	return nil
}
