package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/docgen-api/internal/api/shared"
	"github.com/phrazzld/docgen-api/internal/domain"
	"github.com/phrazzld/docgen-api/internal/platform/logger"
	"github.com/phrazzld/docgen-api/internal/service"
	"github.com/phrazzld/docgen-api/internal/task"
)

// RequestIDParam is the chi URL parameter holding the job's request ID.
const RequestIDParam = "requestId"

// Submitter accepts generation jobs.
type Submitter interface {
	Submit(ctx context.Context, req domain.GenerationRequest) (service.Submission, error)
}

// StatusReporter answers status polls.
type StatusReporter interface {
	Status(ctx context.Context, requestID string) (service.StatusReport, error)
}

// GenerationHandler serves the submission and status endpoints.
type GenerationHandler struct {
	submitter Submitter
	statuses  StatusReporter
	logger    *slog.Logger
}

// NewGenerationHandler creates a new GenerationHandler.
func NewGenerationHandler(submitter Submitter, statuses StatusReporter, logger *slog.Logger) *GenerationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationHandler{
		submitter: submitter,
		statuses:  statuses,
		logger:    logger.With("component", "generation_handler"),
	}
}

// SubmitGeneration handles POST /api/generations. It responds 202 Accepted
// as soon as the job is queued.
func (h *GenerationHandler) SubmitGeneration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req SubmitGenerationRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge, "Request body too large", err,
				shared.WithElevatedLogLevel())
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.ValidationMessage(err), err)
		return
	}

	genReq, err := req.toDomain()
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, GetSafeErrorMessage(err), err)
		return
	}

	submission, err := h.submitter.Submit(r.Context(), genReq)
	if err != nil {
		if errors.Is(err, task.ErrQueueFull) {
			w.Header().Set("Retry-After", "5")
		}
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.InfoContext(r.Context(), "generation submitted",
		"request_id", submission.RequestID,
		"request", req)

	shared.RespondWithJSON(w, r, http.StatusAccepted, submissionToResponse(submission))
}

// GetGenerationStatus handles GET /api/generations/{requestId}. Unknown
// request IDs are reported as still processing.
func (h *GenerationHandler) GetGenerationStatus(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, RequestIDParam)

	report, err := h.statuses.Status(r.Context(), requestID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	shared.RespondWithJSON(w, r, http.StatusOK, StatusResponseFromReport(report))
}
