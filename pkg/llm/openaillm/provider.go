package openaillm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Hunter5Thompson/Alpha-01/pkg/llm"
)

// requestTimeout bounds a single chat completion call; the SDK default
// client carries no timeout and would hang callers on a stalled connection.
const requestTimeout = 120 * time.Second

// OpenAIProvider adapts the OpenAI chat completions API to llm.LLMProvider.
type OpenAIProvider struct {
	Client    *openai.Client
	ModelName string
}

var _ llm.LLMProvider = &OpenAIProvider{}

func NewOpenAIProvider(apiKey, modelName string) *OpenAIProvider {
	return NewOpenAIProviderWithConfig(defaultClientConfig(apiKey), modelName)
}

func defaultClientConfig(apiKey string) openai.ClientConfig {
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	return cfg
}

func NewOpenAIProviderWithConfig(cfg openai.ClientConfig, modelName string) *OpenAIProvider {
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		Client:    openai.NewClientWithConfig(cfg),
		ModelName: modelName,
	}
}

func (p *OpenAIProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := &llm.Options{
		Temperature: 0.7,
	}
	for _, opt := range opts {
		opt(options)
	}

	messages := make([]openai.ChatCompletionMessage, len(history))
	for i, msg := range history {
		role := msg.Role
		if role == "model" {
			role = openai.ChatMessageRoleAssistant
		}
		messages[i] = openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		}
	}

	model := p.ModelName
	if options.Model != "" {
		model = options.Model
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(options.Temperature),
	}
	if options.MaxTokens > 0 {
		req.MaxTokens = options.MaxTokens
	}

	res, err := p.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		if st, ok := statusError(err); ok {
			return "", st
		}
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return res.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

// statusError converts SDK errors that carry an HTTP status into
// llm.StatusError so callers can classify them without importing the SDK.
func statusError(err error) (*llm.StatusError, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &llm.StatusError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &llm.StatusError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}, true
	}
	return nil, false
}
