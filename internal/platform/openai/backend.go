// Package openai adapts OpenAI-compatible chat completion APIs (OpenAI,
// OpenRouter, DeepSeek) to the generation.Backend interface.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/phrazzld/docgen-api/internal/generation"
)

// Name is the backend identifier used in requests.
const Name = "openai"

// DefaultModels is the fallback model order for this backend.
var DefaultModels = []string{"gpt-4o-mini", "gpt-4o"}

const systemPrompt = "You are a senior software architect who writes clear, well structured project documentation in Markdown."

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Config configures the adapter.
type Config struct {
	// Name overrides the backend identifier, so one process can register
	// several OpenAI-compatible providers.
	Name string
	// BaseURL overrides the API endpoint. Empty means api.openai.com.
	BaseURL     string
	MaxTokens   int
	Temperature float32
}

// Backend implements generation.Backend with go-openai.
type Backend struct {
	name      string
	cfg       Config
	logger    *slog.Logger
	newClient func(apiKey string) chatClient

	// countTokens estimates usage when the provider omits it.
	countTokens func(model, text string) int
}

// New creates an OpenAI-compatible backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.Name
	if name == "" {
		name = Name
	}
	return &Backend{
		name:        name,
		cfg:         cfg,
		logger:      logger.With("component", "openai_backend", "backend", name),
		countTokens: estimateTokens,
		newClient: func(apiKey string) chatClient {
			config := goopenai.DefaultConfig(apiKey)
			if cfg.BaseURL != "" {
				config.BaseURL = cfg.BaseURL
			}
			return goopenai.NewClientWithConfig(config)
		},
	}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return b.name }

// Complete sends the prompt as a single chat turn.
func (b *Backend) Complete(ctx context.Context, req generation.CompletionRequest) (generation.Completion, error) {
	if req.Credential == "" {
		return generation.Completion{}, generation.NewError(generation.KindConfiguration, generation.ErrMissingCredential)
	}

	chatReq := goopenai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   b.cfg.MaxTokens,
		Temperature: b.cfg.Temperature,
	}

	b.logger.DebugContext(ctx, "calling chat completion",
		"model", req.Model,
		"prompt_length", len(req.Prompt))

	resp, err := b.newClient(req.Credential).CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return generation.Completion{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return generation.Completion{}, generation.NewError(generation.KindEmptyOutput,
			fmt.Errorf("%w: no choices", generation.ErrEmptyOutput))
	}

	text := resp.Choices[0].Message.Content
	out := generation.Completion{
		Text:         text,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	if out.InputTokens == 0 && out.OutputTokens == 0 {
		out.InputTokens = b.countTokens(req.Model, systemPrompt+req.Prompt)
		out.OutputTokens = b.countTokens(req.Model, text)
	}
	return out, nil
}

// estimateTokens counts tokens locally when the provider omits usage.
func estimateTokens(model, text string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0
		}
	}
	return len(enc.Encode(text, nil, nil))
}

func classify(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return generation.NewError(generation.KindForStatus(apiErr.HTTPStatusCode),
			fmt.Errorf("provider returned status %d: %w", apiErr.HTTPStatusCode, err))
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return generation.NewError(generation.KindForStatus(reqErr.HTTPStatusCode),
			fmt.Errorf("provider returned status %d: %w", reqErr.HTTPStatusCode, err))
	}

	return generation.NewError(generation.KindOf(err), err)
}
