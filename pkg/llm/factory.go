package llm

import (
	"fmt"
	"os"
	"strings"
)

// Provider represents the LLM provider type
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderOpenAI Provider = "openai"
)

// Factory creates LLM instances based on provider
type Factory struct {
	getenv func(string) string
}

// NewFactory creates a factory that reads credentials from the process environment
func NewFactory() *Factory {
	return &Factory{getenv: os.Getenv}
}

// CreateLLM creates an LLM instance based on provider and configuration
func (f *Factory) CreateLLM(provider Provider, config map[string]string) (LLM, error) {
	apiKey := config["api_key"]
	model := config["model"]

	switch provider {
	case ProviderClaude:
		if apiKey == "" {
			return nil, fmt.Errorf("Claude API key is required")
		}
		if model != "" {
			return NewClaudeWithModel(apiKey, model), nil
		}
		return NewClaude(apiKey), nil

	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		if model != "" {
			return NewOpenAIWithModel(apiKey, model), nil
		}
		return NewOpenAI(apiKey), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// Create resolves the provider from providerOverride or LLM_PROVIDER (default
// claude) and reads the matching API key and model from the environment.
// modelOverride wins over CLAUDE_MODEL / OPENAI_MODEL.
func (f *Factory) Create(providerOverride, modelOverride string) (LLM, error) {
	provider := strings.ToLower(strings.TrimSpace(providerOverride))
	if provider == "" {
		provider = strings.ToLower(f.getenv("LLM_PROVIDER"))
	}

	var keyVar, modelVar string
	switch Provider(provider) {
	case ProviderOpenAI:
		keyVar, modelVar = "OPENAI_API_KEY", "OPENAI_MODEL"
	case ProviderClaude, "":
		provider = string(ProviderClaude)
		keyVar, modelVar = "ANTHROPIC_API_KEY", "CLAUDE_MODEL"
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER: %s (supported: claude, openai)", provider)
	}

	apiKey := f.getenv(keyVar)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set", keyVar)
	}
	model := modelOverride
	if model == "" {
		model = f.getenv(modelVar)
	}
	return f.CreateLLM(Provider(provider), map[string]string{"api_key": apiKey, "model": model})
}

// GetAvailableProviders returns a list of available LLM providers
func (f *Factory) GetAvailableProviders() []Provider {
	return []Provider{ProviderClaude, ProviderOpenAI}
}

// CreateFromEnv is a convenience wrapper around NewFactory().Create.
func CreateFromEnv(providerOverride, modelOverride string) (LLM, error) {
	return NewFactory().Create(providerOverride, modelOverride)
}
