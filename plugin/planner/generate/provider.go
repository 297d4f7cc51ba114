package generate

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hrygo/planweaver/internal/profile"
)

// Provider abstracts the chat completion backend used for schedule drafting.
type Provider interface {
	// Complete sends a system+user prompt pair and returns the raw model output.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// Name identifies the provider for persistence and logging.
	Name() string
	// Model returns the model identifier in use.
	Model() string
}

// OpenAIProvider implements Provider against any OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIProvider builds a provider from the profile's LLM settings.
// BaseURL makes it work with self-hosted and proxy deployments.
func NewOpenAIProvider(p *profile.Profile) *OpenAIProvider {
	cfg := openai.DefaultConfig(p.LLMAPIKey)
	if p.LLMBaseURL != "" {
		cfg.BaseURL = p.LLMBaseURL
	}
	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(cfg),
		model:       p.LLMModel,
		maxTokens:   p.LLMMaxTok,
		temperature: 0.7,
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Model() string { return p.model }

var _ Provider = (*OpenAIProvider)(nil)
