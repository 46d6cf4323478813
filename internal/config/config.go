package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (ASKPDF_*). Nested keys use underscores
// doubled as separators, e.g. ASKPDF_SERVER__PORT -> server.port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: ASKPDF_DATA_DIR -> data_dir, etc.
	if err := k.Load(env.Provider("ASKPDF_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "ASKPDF_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderOpenAI:     true,
	ProviderOpenRouter: true,
	ProviderOllama:     true,
}

// Validate checks that the configuration contains valid values. The model
// profile map in particular is validated here so that a bad profile fails
// at startup rather than on the first query that selects it.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must be non-negative")
	}

	if !validProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding provider %q: must be one of openai, openrouter, ollama", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive")
	}
	if c.Embedding.CacheSize < 0 {
		return fmt.Errorf("embedding cache_size must be non-negative")
	}

	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking overlap must be in [0, size)")
	}

	if c.Retrieval.K < 1 {
		return fmt.Errorf("retrieval k must be at least 1")
	}
	if c.Retrieval.FetchK < c.Retrieval.K {
		return fmt.Errorf("retrieval fetch_k must be >= k")
	}
	if c.Retrieval.Lambda < 0 || c.Retrieval.Lambda > 1 {
		return fmt.Errorf("retrieval lambda must be in [0, 1]")
	}
	if c.Retrieval.ContextTokenBudget <= 0 {
		return fmt.Errorf("retrieval context_token_budget must be positive")
	}

	if len(c.Models) == 0 {
		return fmt.Errorf("at least one model profile is required")
	}
	for key, profile := range c.Models {
		if !validProviders[profile.Provider] {
			return fmt.Errorf("model profile %q: invalid provider %q", key, profile.Provider)
		}
		if profile.Model == "" {
			return fmt.Errorf("model profile %q: model is required", key)
		}
		if profile.Provider != ProviderOllama && profile.APIKeyEnv == "" {
			return fmt.Errorf("model profile %q: api_key_env is required for provider %q", key, profile.Provider)
		}
		if profile.RPM < 0 {
			return fmt.Errorf("model profile %q: rpm must be non-negative", key)
		}
	}
	if c.DefaultModel == "" {
		return fmt.Errorf("default_model is required")
	}
	if _, ok := c.Models[c.DefaultModel]; !ok {
		return fmt.Errorf("default_model %q is not a configured model profile", c.DefaultModel)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be in [0, 65535]")
	}

	return nil
}

// Profile looks up a model profile by key. The empty key selects the
// default profile.
func (c *Config) Profile(key string) (ModelProfile, string, error) {
	if key == "" {
		key = c.DefaultModel
	}
	profile, ok := c.Models[key]
	if !ok {
		return ModelProfile{}, key, fmt.Errorf("unknown model %q", key)
	}
	return profile, key, nil
}

// APIKey resolves the profile's API key from the environment. Local Ollama
// needs none; other providers fail when the variable is unset or empty.
func (p ModelProfile) APIKey() (string, error) {
	if p.Provider == ProviderOllama {
		return "", nil
	}
	key := os.Getenv(p.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("API key not configured: set %s", p.APIKeyEnv)
	}
	return key, nil
}

// APIKey resolves the embedding backend's API key from the environment,
// with the same rules as ModelProfile.APIKey.
func (e EmbeddingConfig) APIKey() (string, error) {
	if e.Provider == ProviderOllama {
		return "", nil
	}
	key := os.Getenv(e.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("API key not configured: set %s", e.APIKeyEnv)
	}
	return key, nil
}
