// Package ollama adapts a local or self-hosted Ollama server to the
// generation.Backend interface. Ollama needs no credential.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/phrazzld/docgen-api/internal/generation"
)

// Name is the backend identifier used in requests.
const Name = "ollama"

// DefaultModels is the fallback model order for this backend.
var DefaultModels = []string{"llama3.1", "mistral"}

type chatter interface {
	Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error
}

// Backend implements generation.Backend with the Ollama API client.
type Backend struct {
	client      chatter
	logger      *slog.Logger
	temperature float64
}

// New creates an Ollama backend talking to baseURL. A trailing "/v1" is
// stripped because the native API lives at the server root.
func New(baseURL string, temperature float64, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	trimmed := strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid Ollama base URL %q", baseURL)
	}

	return &Backend{
		client:      api.NewClient(parsed, http.DefaultClient),
		logger:      logger.With("component", "ollama_backend"),
		temperature: temperature,
	}, nil
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return Name }

// CredentialOptional reports that Ollama runs without an API key.
func (b *Backend) CredentialOptional() bool { return true }

// Complete runs a non-streaming chat request.
func (b *Backend) Complete(ctx context.Context, req generation.CompletionRequest) (generation.Completion, error) {
	stream := false
	chatReq := &api.ChatRequest{
		Model: req.Model,
		Messages: []api.Message{
			{Role: "user", Content: req.Prompt},
		},
		Stream: &stream,
		Options: map[string]any{
			"temperature": b.temperature,
		},
	}

	b.logger.DebugContext(ctx, "calling Ollama chat",
		"model", req.Model,
		"prompt_length", len(req.Prompt))

	var (
		text strings.Builder
		last api.ChatResponse
	)
	err := b.client.Chat(ctx, chatReq, func(r api.ChatResponse) error {
		text.WriteString(r.Message.Content)
		last = r
		return nil
	})
	if err != nil {
		return generation.Completion{}, classify(err)
	}

	return generation.Completion{
		Text:         text.String(),
		InputTokens:  last.PromptEvalCount,
		OutputTokens: last.EvalCount,
	}, nil
}

func classify(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		kind := generation.KindForStatus(statusErr.StatusCode)
		if statusErr.StatusCode == http.StatusNotFound {
			kind = generation.KindConfiguration
		}
		return generation.NewError(kind, fmt.Errorf("ollama returned status %d: %w", statusErr.StatusCode, err))
	}
	// The client surfaces server error bodies as plain errors.
	if strings.Contains(err.Error(), "not found") {
		return generation.NewError(generation.KindConfiguration, err)
	}
	return generation.NewError(generation.KindOf(err), err)
}
