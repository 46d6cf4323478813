package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .askpdf.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to askpdf! Let's configure your document store.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Embedding backend.
	embeddingPrompt := promptui.Select{
		Label: "Select embedding backend",
		Items: []string{
			"ollama — local, nomic-embed-text (no API key)",
			"openai — text-embedding-3-small (needs OPENAI_API_KEY)",
		},
	}
	embeddingIdx, _, err := embeddingPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedding selection: %w", err)
	}
	if embeddingIdx == 1 {
		cfg.Embedding = EmbeddingConfig{
			Provider:   ProviderOpenAI,
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			APIKeyEnv:  "OPENAI_API_KEY",
			CacheSize:  cfg.Embedding.CacheSize,
		}
	}

	// 2. Default chat model.
	modelPrompt := promptui.Select{
		Label: "Select default chat model",
		Items: []string{
			"ollama     — local llama3 (no API key)",
			"openrouter — openai/gpt-oss-20b:free (needs OPENROUTER_API_KEY)",
		},
	}
	modelIdx, _, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model selection: %w", err)
	}
	if modelIdx == 1 {
		cfg.DefaultModel = "openrouter"
	}

	// 3. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory (uploads, index, history)",
		Default: cfg.DataDir,
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	// 4. HTTP port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 || n > 65535 {
				return fmt.Errorf("enter a port number between 0 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// Point out missing API keys before the first request fails on them.
	for key, profile := range cfg.Models {
		if profile.APIKeyEnv != "" && os.Getenv(profile.APIKeyEnv) == "" {
			fmt.Printf("\nNote: set %s before querying the %q model.\n", profile.APIKeyEnv, key)
		}
	}
	if cfg.Embedding.APIKeyEnv != "" && os.Getenv(cfg.Embedding.APIKeyEnv) == "" {
		fmt.Printf("Note: set %s before uploading documents.\n", cfg.Embedding.APIKeyEnv)
	}

	configPath := ".askpdf.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}
