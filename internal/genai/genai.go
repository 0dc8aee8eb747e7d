// Package genai wraps OpenAI chat completions for dialogue turn generation.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/elashya/multi-agent/internal/models"
)

// Error variables for better error handling and testability
var (
	// ErrNoChoicesReturned indicates the API returned an empty choice list.
	ErrNoChoicesReturned = errors.New("no choices returned")
)

// GenerationError wraps an upstream chat-completion failure (network, auth,
// quota, malformed payload). The run that hit it is aborted; there is no
// automatic retry.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openaiChatService adapts the OpenAI SDK chat completion service to chatService.
type openaiChatService struct {
	client openai.Client
}

func (s openaiChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	// APIKey overrides the OPENAI_API_KEY environment variable.
	APIKey string
	// BaseURL overrides the OpenAI API endpoint, e.g. for a compatible proxy.
	BaseURL string
}

// Option configures the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// Client wraps the OpenAI ChatCompletion service for generating dialogue turns.
type Client struct {
	chat chatService
}

// NewClient initializes a new GenAI client. The API key comes from options or
// the OPENAI_API_KEY environment variable; a missing key is a configuration
// error surfaced before any turn is attempted.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		slog.Error("GenAI client missing API key")
		return nil, models.ErrMissingAPIKey
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	cli := openai.NewClient(reqOpts...)
	slog.Debug("GenAI client initialized", "base_url_set", cfg.BaseURL != "")
	return &Client{chat: openaiChatService{client: cli}}, nil
}

// Generate produces one reply for the given role prompts using the supplied
// sampling parameters. Only the first choice is used and the result is trimmed
// of leading and trailing whitespace.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string, sampling models.SamplingConfig) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(sampling.Model),
		Temperature: openai.Float(sampling.Temperature),
		TopP:        openai.Float(sampling.TopP),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}
	slog.Debug("GenAI Generate invoked", "model", sampling.Model, "temperature", sampling.Temperature, "top_p", sampling.TopP)

	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("GenAI Generate failed", "model", sampling.Model, "error", err)
		return "", &GenerationError{Err: err}
	}
	if len(resp.Choices) == 0 {
		slog.Error("GenAI Generate returned no choices", "model", sampling.Model)
		return "", &GenerationError{Err: ErrNoChoicesReturned}
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("GenAI Generate succeeded", "model", sampling.Model, "reply_length", len(content))
	return content, nil
}
