package deepseek

import (
	"github.com/Sibikrish3000/cr-agent/internal/llm/openai"
)

// Provider implements llm.Provider for DeepSeek, which speaks the OpenAI chat completions API
type Provider struct {
	*openai.Provider
}

// NewProvider creates a new DeepSeek provider
func NewProvider(apiKey, defaultModel string) *Provider {
	if defaultModel == "" {
		defaultModel = "deepseek-chat"
	}
	return &Provider{
		Provider: openai.NewCompatible("deepseek", apiKey, defaultModel, "https://api.deepseek.com/v1", []string{
			"deepseek-chat",
			"deepseek-reasoner",
		}),
	}
}
