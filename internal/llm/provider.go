// Package llm provides text generators for the external extraction backend.
//
// Every provider turns a prompt into raw model text; parsing and schema
// normalization happen downstream, so providers stay thin API wrappers.
package llm

import (
	"context"
	"os"
	"strings"

	"github.com/ppiankov/narrascan/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Model returns the model identifier requests are sent to
	Model() string

	// Generate returns the model's raw reply to prompt
	Generate(ctx context.Context, prompt string) (string, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// systemPrompt pins the reply format for every provider
const systemPrompt = "You are a careful clinical text annotator. You return valid JSON only, no markdown formatting. You never score risk or recommend actions."

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "gemini", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic/Gemini
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama, OpenAI-compatible gateways)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
}

// ConfigFromModel converts model.LLMConfig to llm.Config, filling the API key
// and Ollama base URL from the environment when they are not configured
func ConfigFromModel(mc model.LLMConfig) Config {
	cfg := Config{
		Provider:   strings.ToLower(strings.TrimSpace(mc.Provider)),
		Model:      mc.Model,
		APIKey:     mc.APIKey,
		BaseURL:    mc.BaseURL,
		Timeout:    mc.Timeout,
		MaxTokens:  mc.MaxTokens,
		HTTPProxy:  mc.HTTPProxy,
		HTTPSProxy: mc.HTTPSProxy,
	}
	if cfg.APIKey == "" {
		cfg.APIKey = APIKeyFromEnv(cfg.Provider)
	}
	if cfg.BaseURL == "" && cfg.Provider == "ollama" {
		cfg.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	return cfg
}

// APIKeyFromEnv returns the conventional API key variable for provider
func APIKeyFromEnv(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic", "claude":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini", "google":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	}
	return ""
}

func (c Config) maxTokens() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 1500
}
