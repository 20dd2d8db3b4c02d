// Package embedding turns text into dense vectors via a local ONNX model,
// an OpenAI-compatible HTTP API, or a deterministic mock for tests.
package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/hokan/hokan/internal/config"
)

// Embedder produces vector embeddings for text. Implementations must be safe
// for concurrent use and must return vectors of exactly Dimensions() entries.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// New builds the embedder named by the config.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "onnx":
		return NewONNX(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens, cfg.CacheSize)
	case "openai":
		return NewOpenAI(cfg)
	case "mock":
		return NewMock(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// NormalizeL2 scales x in place to unit L2 norm so dot products equal cosine
// similarity. A zero vector is left unchanged.
func NormalizeL2(x []float32) {
	var sum float32
	for _, v := range x {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range x {
		x[i] *= norm
	}
}
