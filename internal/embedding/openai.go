package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hokan/hokan/internal/config"
)

const (
	openAIMaxRetries   = 3
	openAIRetryBackoff = 500 * time.Millisecond
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. It works
// against api.openai.com as well as self-hosted servers that speak the same
// protocol (Ollama, LocalAI, vLLM).
type OpenAIEmbedder struct {
	baseURL    string
	model      string
	apiKey     string
	dimensions int
	client     *http.Client
	cache      *lruCache
}

// NewOpenAI builds the client from config. The API key is read from the
// environment variable named by cfg.APIKeyEnv; a missing key is allowed
// because local servers usually do not check one.
func NewOpenAI(cfg config.EmbeddingConfig) (*OpenAIEmbedder, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai embedding provider requires base_url")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai embedding provider requires a model name")
	}
	return &OpenAIEmbedder{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     os.Getenv(cfg.APIKeyEnv),
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: 60 * time.Second},
		cache:      newLRUCache(cfg.CacheSize),
	}, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed returns the embedding for one text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.cache.get(text); ok {
		return vec, nil
	}
	vectors, err := e.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	e.cache.put(text, vectors[0])
	return vectors[0], nil
}

// EmbedBatch embeds all texts in a single API call, falling back to the cache
// for texts already seen.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if vec, ok := e.cache.get(text); ok {
			vectors[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return vectors, nil
	}

	fetched, err := e.request(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range fetched {
		vectors[missingIdx[j]] = vec
		e.cache.put(missing[j], vec)
	}
	return vectors, nil
}

// request posts the texts and returns embeddings in input order, retrying on
// rate limits and transient server errors.
func (e *OpenAIEmbedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingsRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < openAIMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(openAIRetryBackoff << (attempt - 1)):
			}
		}

		vectors, retryable, err := e.post(ctx, body, len(texts))
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("embeddings request failed after %d attempts: %w", openAIMaxRetries, lastErr)
}

func (e *OpenAIEmbedder) post(ctx context.Context, body []byte, want int) ([][]float32, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("embeddings request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read embeddings response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("embeddings API returned %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		var parsed embeddingsResponse
		if json.Unmarshal(data, &parsed) == nil && parsed.Error != nil {
			return nil, false, fmt.Errorf("embeddings API returned %s: %s", resp.Status, parsed.Error.Message)
		}
		return nil, false, fmt.Errorf("embeddings API returned %s", resp.Status)
	}

	var parsed embeddingsResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, false, fmt.Errorf("decode embeddings response: %w", err)
	}
	if len(parsed.Data) != want {
		return nil, false, fmt.Errorf("embeddings API returned %d vectors, want %d", len(parsed.Data), want)
	}

	// The API is allowed to reorder results; the index field restores input order.
	sort.Slice(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })
	vectors := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		if e.dimensions > 0 && len(d.Embedding) != e.dimensions {
			return nil, false, fmt.Errorf("embedding %d has %d dimensions, want %d", i, len(d.Embedding), e.dimensions)
		}
		NormalizeL2(d.Embedding)
		vectors[i] = d.Embedding
	}
	return vectors, false, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no resources needing release.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
