package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/docgen-api/internal/generation"
	"google.golang.org/genai"
)

// Name is the backend identifier used in requests.
const Name = "gemini"

// DefaultModels is the fallback model order for this backend.
var DefaultModels = []string{"gemini-2.0-flash", "gemini-1.5-flash"}

// contentGenerator is the subset of the genai client used by the adapter.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

type clientFactory func(ctx context.Context, apiKey string) (contentGenerator, error)

func newGenAIClient(ctx context.Context, apiKey string) (contentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// Backend implements generation.Backend on top of the genai SDK.
type Backend struct {
	logger    *slog.Logger
	newClient clientFactory
}

// New creates a Gemini backend.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		logger:    logger.With("component", "gemini_backend"),
		newClient: newGenAIClient,
	}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return Name }

// Complete sends one prompt to the model named in req.
func (b *Backend) Complete(ctx context.Context, req generation.CompletionRequest) (generation.Completion, error) {
	if req.Credential == "" {
		return generation.Completion{}, generation.NewError(generation.KindConfiguration, generation.ErrMissingCredential)
	}

	client, err := b.newClient(ctx, req.Credential)
	if err != nil {
		return generation.Completion{}, generation.NewError(generation.KindConfiguration,
			fmt.Errorf("failed to create Gemini client: %w", err))
	}

	b.logger.DebugContext(ctx, "calling Gemini",
		"model", req.Model,
		"prompt_length", len(req.Prompt))

	resp, err := client.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), nil)
	if err != nil {
		return generation.Completion{}, classify(err)
	}

	return parseResponse(resp)
}

func parseResponse(resp *genai.GenerateContentResponse) (generation.Completion, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return generation.Completion{}, generation.NewError(generation.KindEmptyOutput,
			fmt.Errorf("%w: no candidates", generation.ErrEmptyOutput))
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return generation.Completion{}, generation.NewError(generation.KindEmptyOutput, generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return generation.Completion{}, generation.NewError(generation.KindEmptyOutput,
			fmt.Errorf("%w: empty candidate content", generation.ErrEmptyOutput))
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	out := generation.Completion{Text: text.String()}
	if usage := resp.UsageMetadata; usage != nil {
		out.InputTokens = int(usage.PromptTokenCount)
		out.OutputTokens = int(usage.CandidatesTokenCount)
	}
	return out, nil
}

// classify maps a genai error onto the generation taxonomy.
func classify(err error) error {
	if generation.KindOf(err) == generation.KindTimeout {
		return generation.NewError(generation.KindTimeout, err)
	}

	code, message, ok := apiErrorDetails(err)
	if !ok {
		return generation.NewError(generation.KindTransport, err)
	}

	kind := generation.KindForStatus(code)
	if code == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "api key") {
		kind = generation.KindAuthentication
	}
	return generation.NewError(kind, fmt.Errorf("gemini returned status %d: %w", code, err))
}

func apiErrorDetails(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Message, true
	}
	return 0, "", false
}
