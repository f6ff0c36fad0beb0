package factory

import (
	"fmt"

	"github.com/Hunter5Thompson/Alpha-01/pkg/llm"
	"github.com/Hunter5Thompson/Alpha-01/pkg/llm/anthropic"
	"github.com/Hunter5Thompson/Alpha-01/pkg/llm/openaillm"
)

// NewLLMProvider selects a generation backend once at startup. Call sites
// depend on llm.LLMProvider and never branch on the provider name again.
func NewLLMProvider(providerType, modelName, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "openai":
		return openaillm.NewOpenAIProvider(apiKey, modelName), nil
	case "anthropic":
		return anthropic.NewAnthropicProvider(apiKey, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
