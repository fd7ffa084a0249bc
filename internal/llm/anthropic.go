package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// DefaultAnthropicBaseURL is the hosted Messages API.
	DefaultAnthropicBaseURL = "https://api.anthropic.com"
	fallbackTimeout         = 120 * time.Second
)

// AnthropicClient calls the hosted Messages API. It is the always-available
// fallback behind the local model.
type AnthropicClient struct {
	client  anthropic.Client
	apiKey  string
	modelID string
}

// NewAnthropicClient returns a client for model authenticated by apiKey.
func NewAnthropicClient(apiKey, baseURL, model string, opts ...option.RequestOption) *AnthropicClient {
	if baseURL == "" {
		baseURL = DefaultAnthropicBaseURL
	}
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(strings.TrimSuffix(baseURL, "/") + "/"),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(fallbackTimeout),
	}, opts...)
	return &AnthropicClient{
		client:  anthropic.NewClient(opts...),
		apiKey:  apiKey,
		modelID: model,
	}
}

// Model returns the fallback model id.
func (c *AnthropicClient) Model() string { return c.modelID }

// Complete sends prompt as a single user message.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string, maxTokens int) (Completion, error) {
	if c.apiKey == "" || c.modelID == "" {
		return Completion{}, ErrNotConfigured
	}
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.modelID),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(primaryTemperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return Completion{}, fmt.Errorf("messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return Completion{}, ErrEmptyResponse
	}
	return Completion{
		Text:         sb.String(),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}
