package embed

import "fmt"

// Config contains configuration for creating an embedding provider.
type Config struct {
	// Provider selects which embedding provider to use: "local" (an
	// Ollama-style HTTP endpoint), "openai" (an OpenAI-compatible HTTP
	// endpoint), or "mock" (for testing).
	Provider string

	// Endpoint is the base URL of the embedding service.
	Endpoint string

	// APIKey authenticates against cloud providers (e.g. "openai").
	APIKey string

	// Model selects the provider's embedding model.
	Model string

	// Dimensions is the known output width of the selected model.
	Dimensions int
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(config Config) (Provider, error) {
	switch config.Provider {
	case "local", "": // empty defaults to local
		return newLocalProvider(config)

	case "openai":
		return newOpenAIProvider(config)

	case "mock": // for testing
		return newMockProvider(), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: local, openai, mock)", config.Provider)
	}
}
