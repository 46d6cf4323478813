package config

// OpenRouterBaseURL is the OpenAI-compatible endpoint OpenRouter exposes.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OllamaBaseURL is the default address of a local Ollama daemon.
const OllamaBaseURL = "http://localhost:11434"

// DefaultConfig returns a Config with sensible defaults: a local Ollama
// embedder and two chat profiles, one local and one via OpenRouter.
func DefaultConfig() *Config {
	return &Config{
		DataDir:        ".askpdf",
		MaxUploadBytes: 16 << 20,
		HistoryLimit:   50,
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Embedding: EmbeddingConfig{
			Provider:   ProviderOllama,
			Model:      "nomic-embed-text",
			Dimensions: 768,
			BaseURL:    OllamaBaseURL,
			CacheSize:  1000,
		},
		Chunking: ChunkingConfig{
			Size:    1500,
			Overlap: 100,
		},
		Retrieval: RetrievalConfig{
			K:                  5,
			FetchK:             10,
			Lambda:             0.5,
			ContextTokenBudget: 3000,
		},
		Models: map[string]ModelProfile{
			"ollama": {
				Provider: ProviderOllama,
				Model:    "llama3",
				BaseURL:  OllamaBaseURL,
			},
			"openrouter": {
				Provider:  ProviderOpenRouter,
				Model:     "openai/gpt-oss-20b:free",
				BaseURL:   OpenRouterBaseURL,
				APIKeyEnv: "OPENROUTER_API_KEY",
				// The free tier allows 20 requests per minute.
				RPM: 20,
			},
		},
		DefaultModel: "ollama",
	}
}
