package config

// ProviderType identifies an embedding or chat model backend.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderOllama     ProviderType = "ollama"
)

// Config is the top-level askpdf configuration, corresponding to .askpdf.yml.
type Config struct {
	DataDir        string                  `yaml:"data_dir" koanf:"data_dir"`
	MaxUploadBytes int64                   `yaml:"max_upload_bytes" koanf:"max_upload_bytes"`
	WatchDir       string                  `yaml:"watch_dir" koanf:"watch_dir"`
	HistoryLimit   int                     `yaml:"history_limit" koanf:"history_limit"`
	Server         ServerConfig            `yaml:"server" koanf:"server"`
	Embedding      EmbeddingConfig         `yaml:"embedding" koanf:"embedding"`
	Chunking       ChunkingConfig          `yaml:"chunking" koanf:"chunking"`
	Retrieval      RetrievalConfig         `yaml:"retrieval" koanf:"retrieval"`
	Models         map[string]ModelProfile `yaml:"models" koanf:"models"`
	DefaultModel   string                  `yaml:"default_model" koanf:"default_model"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host           string   `yaml:"host" koanf:"host"`
	Port           int      `yaml:"port" koanf:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}

// EmbeddingConfig selects the embedding backend. Every vector in the index
// must come from this one model; changing it invalidates persisted state.
type EmbeddingConfig struct {
	Provider   ProviderType `yaml:"provider" koanf:"provider"`
	Model      string       `yaml:"model" koanf:"model"`
	Dimensions int          `yaml:"dimensions" koanf:"dimensions"`
	BaseURL    string       `yaml:"base_url" koanf:"base_url"`
	APIKeyEnv  string       `yaml:"api_key_env" koanf:"api_key_env"`
	CacheSize  int          `yaml:"cache_size" koanf:"cache_size"`
}

// ChunkingConfig controls how extracted text is split.
type ChunkingConfig struct {
	Size    int `yaml:"size" koanf:"size"`
	Overlap int `yaml:"overlap" koanf:"overlap"`
}

// RetrievalConfig controls the MMR search policy. Lambda 1.0 means pure
// similarity ranking; lower values trade relevance for diversity.
type RetrievalConfig struct {
	K                  int     `yaml:"k" koanf:"k"`
	FetchK             int     `yaml:"fetch_k" koanf:"fetch_k"`
	Lambda             float64 `yaml:"lambda" koanf:"lambda"`
	ContextTokenBudget int     `yaml:"context_token_budget" koanf:"context_token_budget"`
}

// ModelProfile is one entry of the closed set of chat models a query may
// select by key. Unknown keys are rejected, both at startup and per request.
type ModelProfile struct {
	Provider  ProviderType `yaml:"provider" koanf:"provider"`
	Model     string       `yaml:"model" koanf:"model"`
	BaseURL   string       `yaml:"base_url" koanf:"base_url"`
	APIKeyEnv string       `yaml:"api_key_env" koanf:"api_key_env"`
	// RPM caps completion requests per minute; 0 disables the limit.
	RPM int `yaml:"rpm,omitempty" koanf:"rpm"`
}
