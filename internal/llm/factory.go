package llm

import (
	"fmt"

	"github.com/askpdf/askpdf/internal/config"
)

// NewProvider builds the chat backend a model profile describes. The API
// key is resolved from the environment here, so a profile with a missing
// key fails at selection time rather than at startup.
func NewProvider(profile config.ModelProfile) (Provider, error) {
	var p Provider

	switch profile.Provider {
	case config.ProviderOllama:
		p = NewOllamaProvider(profile.BaseURL, profile.Model)

	case config.ProviderOpenAI, config.ProviderOpenRouter:
		apiKey, err := profile.APIKey()
		if err != nil {
			return nil, err
		}
		baseURL := profile.BaseURL
		if baseURL == "" && profile.Provider == config.ProviderOpenRouter {
			baseURL = config.OpenRouterBaseURL
		}
		p = NewOpenAIProvider(apiKey, profile.Model, baseURL, string(profile.Provider))

	default:
		return nil, fmt.Errorf("unsupported provider type %q", profile.Provider)
	}

	return NewRateLimitedProvider(p, profile.RPM), nil
}
