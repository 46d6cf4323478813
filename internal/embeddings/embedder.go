package embeddings

import (
	"context"
	"fmt"

	"github.com/askpdf/askpdf/internal/config"
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// New builds the embedder selected by cfg. When cache_size is positive the
// backend is wrapped with an in-memory LRU cache so repeated texts skip the
// network round trip.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	var base Embedder

	switch cfg.Provider {
	case config.ProviderOllama:
		base = NewOllamaEmbedder(cfg.Model, cfg.Dimensions, cfg.BaseURL)
	case config.ProviderOpenAI:
		apiKey, err := cfg.APIKey()
		if err != nil {
			return nil, err
		}
		base = NewOpenAIEmbedder(apiKey, cfg.Model, cfg.Dimensions, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
	}

	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(base, cfg.CacheSize)
	}
	return base, nil
}
