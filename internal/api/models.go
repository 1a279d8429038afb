package api

import (
	"log/slog"
	"time"

	"github.com/phrazzld/docgen-api/internal/domain"
	"github.com/phrazzld/docgen-api/internal/service"
)

// Status value returned by a successful submission.
const StatusAccepted = "accepted"

// SubmitGenerationRequest is the payload of POST /api/generations.
type SubmitGenerationRequest struct {
	ProjectDetails map[string]string `json:"projectDetails" validate:"max=64,dive,keys,required,max=128,endkeys,max=20000"`
	Categories     map[string]bool   `json:"categories"     validate:"required,min=1,max=32"`
	Backend        string            `json:"backend"        validate:"required,max=64"`
	Model          string            `json:"model"          validate:"max=128"`
	APIKey         string            `json:"apiKey"         validate:"max=512"`
}

// LogValue keeps the credential out of any log line the request reaches.
func (r SubmitGenerationRequest) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.Backend),
		slog.String("model", r.Model),
		slog.Int("categories", len(r.Categories)),
		slog.Int("project_details", len(r.ProjectDetails)),
		slog.Bool("api_key_set", r.APIKey != ""),
	)
}

// toDomain converts the payload into a validated GenerationRequest.
func (r SubmitGenerationRequest) toDomain() (domain.GenerationRequest, error) {
	categories := make(map[domain.Category]bool, len(r.Categories))
	for name, on := range r.Categories {
		categories[domain.Category(name)] = on
	}
	return domain.NewGenerationRequest(r.ProjectDetails, categories, r.Backend, r.Model, r.APIKey)
}

// SubmitGenerationResponse is returned with 202 Accepted.
type SubmitGenerationResponse struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`

	// EstimatedTime is the expected processing time in whole seconds.
	EstimatedTime      int    `json:"estimatedTime"`
	StatusCheckLocator string `json:"statusCheckLocator"`
}

func submissionToResponse(s service.Submission) SubmitGenerationResponse {
	return SubmitGenerationResponse{
		RequestID:          s.RequestID,
		Status:             StatusAccepted,
		EstimatedTime:      int(s.EstimatedTime.Round(time.Second) / time.Second),
		StatusCheckLocator: s.StatusCheckLocator,
	}
}

// GenerationResult is the output of a completed job.
type GenerationResult struct {
	RawContent string           `json:"rawContent"`
	Sections   []domain.Section `json:"sections"`
}

// GenerationError describes why a job failed.
type GenerationError struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Backend  string `json:"backend,omitempty"`
	Model    string `json:"model,omitempty"`
	Attempts int    `json:"attempts"`
}

// GenerationStatusResponse is the body of GET /api/generations/{requestId}.
type GenerationStatusResponse struct {
	RequestID        string             `json:"requestId"`
	Status           string             `json:"status"`
	Message          string             `json:"message"`
	Progress         string             `json:"progress,omitempty"`
	BackendUsed      string             `json:"backendUsed,omitempty"`
	ModelUsed        string             `json:"modelUsed,omitempty"`
	Result           *GenerationResult  `json:"result,omitempty"`
	Error            *GenerationError   `json:"error,omitempty"`
	TokensUsed       *domain.TokenUsage `json:"tokensUsed,omitempty"`
	ProcessingTimeMs int64              `json:"processingTimeMs,omitempty"`
	Timestamp        time.Time          `json:"timestamp"`
}

// StatusResponseFromReport converts a status report into its wire form.
func StatusResponseFromReport(rep service.StatusReport) GenerationStatusResponse {
	resp := GenerationStatusResponse{
		RequestID:        rep.RequestID,
		Status:           string(rep.Status),
		Message:          rep.Message,
		Progress:         rep.Progress,
		BackendUsed:      rep.BackendUsed,
		ModelUsed:        rep.ModelUsed,
		TokensUsed:       rep.TokensUsed,
		ProcessingTimeMs: rep.ProcessingTimeMs,
		Timestamp:        rep.Timestamp,
	}
	if rep.Result != nil {
		sections := rep.Result.Sections
		if sections == nil {
			sections = []domain.Section{}
		}
		resp.Result = &GenerationResult{RawContent: rep.Result.RawContent, Sections: sections}
	}
	if rep.Error != nil {
		resp.Error = &GenerationError{
			Kind:     rep.Error.Kind,
			Message:  rep.Error.Message,
			Backend:  rep.Error.Backend,
			Model:    rep.Error.Model,
			Attempts: rep.Error.Attempts,
		}
	}
	return resp
}
