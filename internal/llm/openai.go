package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultPrimaryTimeout bounds one primary attempt.
	DefaultPrimaryTimeout = 180 * time.Second
	healthTimeout         = 5 * time.Second
	primaryTemperature    = 0.1
	// Self-hosted runtimes ignore the key but the header must be present.
	localAPIKey = "local"
)

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint,
// typically a self-hosted runtime. It never sets response_format since many
// runtimes reject it; JSON validity is checked by the Gateway. SDK retries
// are off so the Gateway owns retry and breaker decisions.
type OpenAIClient struct {
	client  openai.Client
	baseURL string
	modelID string
}

// NewOpenAIClient returns a client for the runtime at baseURL serving model.
// apiKey may be empty for runtimes without auth.
func NewOpenAIClient(baseURL, model, apiKey string, opts ...option.RequestOption) *OpenAIClient {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if apiKey == "" {
		apiKey = localAPIKey
	}
	opts = append([]option.RequestOption{
		option.WithBaseURL(baseURL + "/v1/"),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &OpenAIClient{
		client:  openai.NewClient(opts...),
		baseURL: baseURL,
		modelID: model,
	}
}

// Model returns the model id sent with each request.
func (c *OpenAIClient) Model() string { return c.modelID }

// Complete sends prompt as a single user message.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, maxTokens int) (Completion, error) {
	if c.baseURL == "" || c.modelID == "" {
		return Completion{}, ErrNotConfigured
	}
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.modelID),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(primaryTemperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return Completion{}, fmt.Errorf("chat completions: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Completion{}, ErrEmptyResponse
	}
	return Completion{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

// Health checks that the endpoint answers its model listing quickly.
func (c *OpenAIClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if _, err := c.client.Models.List(ctx); err != nil {
		return fmt.Errorf("models: %w", err)
	}
	return nil
}
