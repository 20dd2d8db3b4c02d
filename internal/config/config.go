// Package config provides configuration loading and validation for hokan.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Server    ServerConfig    `yaml:"server"`
	Watch     WatchConfig     `yaml:"watch"`
}

// StoreConfig selects and configures the collection store driver.
type StoreConfig struct {
	// Driver is one of "sqlite", "qdrant", or "memory".
	Driver string `yaml:"driver"`
	// Path is the sqlite database path (sqlite driver).
	Path string `yaml:"path"`
	// URL and APIKey configure the qdrant driver.
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of "onnx", "openai", or "mock".
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	// BatchSize bounds how many chunk texts are embedded per provider call.
	BatchSize int `yaml:"batch_size"`
	// BaseURL, Model, and APIKeyEnv configure the openai provider. The key is read
	// from the environment (a .env file is honored), never from this file.
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// ChunkingConfig bounds chunk size and overlap, in characters.
type ChunkingConfig struct {
	MaxChars int `yaml:"max_chars"`
	Overlap  int `yaml:"overlap"`
}

// ServerConfig holds HTTP API settings for the serve command.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WatchConfig holds directory watch settings for the watch command.
type WatchConfig struct {
	Collection  string   `yaml:"collection"`
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, applies defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Store.Path = expandPath(cfg.Store.Path, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with all defaults applied, for callers without a config file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Validate checks that every recognized option has a usable value.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "qdrant", "memory":
	default:
		return fmt.Errorf("unknown store driver %q (want sqlite, qdrant, or memory)", c.Store.Driver)
	}
	if c.Store.Driver == "qdrant" && c.Store.URL == "" {
		return fmt.Errorf("store.url is required for the qdrant driver")
	}
	switch c.Embedding.Provider {
	case "onnx", "openai", "mock":
	default:
		return fmt.Errorf("unknown embedding provider %q (want onnx, openai, or mock)", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Chunking.MaxChars <= 0 {
		return fmt.Errorf("chunking.max_chars must be positive, got %d", c.Chunking.MaxChars)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxChars {
		return fmt.Errorf("chunking.overlap must be in [0, max_chars), got %d", c.Chunking.Overlap)
	}
	return nil
}

// expandPath converts a path to absolute. "~" and "~/..." resolve against the
// home directory; other relative paths resolve against configDir.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return filepath.Join(configDir, path)
}
