package provider

import (
	"context"
	"fmt"
	"os"
)

// envKeys names the environment fallback for each key-based provider
var envKeys = map[string]string{
	"elevenlabs": "ELEVENLABS_API_KEY",
	"openai":     "OPENAI_API_KEY",
}

// DefaultProvider is used when neither flags nor config name one
const DefaultProvider = "elevenlabs"

// DefaultFactory is the default provider factory
type DefaultFactory struct{}

// NewFactory creates a new provider factory
func NewFactory() *DefaultFactory {
	return &DefaultFactory{}
}

// CreateProvider creates a provider instance by name
func (f *DefaultFactory) CreateProvider(ctx context.Context, providerName string, settings Settings) (Provider, error) {
	if providerName == "" {
		providerName = DefaultProvider
	}

	if env, ok := envKeys[providerName]; ok && settings.APIKey == "" {
		settings.APIKey = os.Getenv(env)
		if settings.APIKey == "" {
			return nil, fmt.Errorf("%s API key not configured: set apiKey in config or %s", providerName, env)
		}
	}

	switch providerName {
	case "elevenlabs":
		return ElevenLabsProviderFromSettings(settings)
	case "openai":
		return OpenAIProviderFromSettings(settings)
	case "polly":
		if settings.Region == "" {
			settings.Region = os.Getenv("AWS_REGION")
		}
		return PollyProviderFromSettings(ctx, settings)
	case "gcp":
		return GCPProviderFromSettings(ctx, settings)
	default:
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}
}

// ListProviders returns available provider names
func (f *DefaultFactory) ListProviders() []string {
	return []string{"elevenlabs", "gcp", "openai", "polly"}
}
