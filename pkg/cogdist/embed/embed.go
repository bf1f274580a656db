// Package embed maps sentences to fixed-length vectors for topic clustering.
package embed

import (
	"context"
	"fmt"
	"time"
)

// Embedder converts texts to vectors. Every vector returned by one Embedder
// has Dimension() entries and the i-th vector belongs to the i-th text.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
}

// Provider names an Embedder implementation.
type Provider string

const (
	Hashing Provider = "hashing"
	OpenAI  Provider = "openai"
)

// Config selects and configures an Embedder.
type Config struct {
	Provider          Provider      `yaml:"provider"`
	Endpoint          string        `yaml:"endpoint"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	Dimension         int           `yaml:"dimension"`
	BatchSize         int           `yaml:"batch_size"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
	CacheSize         int           `yaml:"cache_size"`
}

const (
	DefaultModel        = "all-mpnet-base-v2"
	DefaultHashingDim   = 256
	DefaultBatchSize    = 32
	DefaultCacheSize    = 4096
	defaultHTTPTimeout  = 60 * time.Second
	defaultHashingModel = "feature-hashing"
)

// New builds the configured Embedder, wrapped in a Cache when CacheSize > 0.
func New(cfg Config) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "", Hashing:
		e = NewHashingEmbedder(cfg.Dimension)
	case OpenAI:
		e, err = NewHTTPEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		c, err := NewCache(e, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return e, nil
}
