package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// MockEmbedder produces deterministic unit vectors derived from a text hash.
// The same text always maps to the same vector, which makes exact-match
// behavior testable without a model.
type MockEmbedder struct {
	dimensions int
}

// NewMock returns a deterministic embedder of the given dimensions.
func NewMock(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed derives a unit vector from the FNV hash of text.
func (e *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := float64(h.Sum64() % 1_000_003)

	vec := make([]float32, e.dimensions)
	for i := range vec {
		vec[i] = float32(math.Sin(seed * float64(i+1)))
	}
	NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *MockEmbedder) Close() error {
	return nil
}
