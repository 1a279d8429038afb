package generation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies a generation failure.
type Kind string

// Failure kinds. The string values are persisted on failed jobs.
const (
	KindConfiguration  Kind = "configuration_error"
	KindAuthentication Kind = "authentication_error"
	KindRateLimit      Kind = "rate_limit_error"
	KindTimeout        Kind = "timeout_error"
	KindTransport      Kind = "transport_error"
	KindEmptyOutput    Kind = "empty_output_error"
	KindInternal       Kind = "internal_error"
)

// Retryable reports whether another attempt against the same backend and
// model may succeed.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimit, KindTimeout, KindTransport:
		return true
	default:
		return false
	}
}

// Common errors returned by the generation package
var (
	// ErrUnknownBackend is returned when a request names a backend that is not registered.
	ErrUnknownBackend = errors.New("unknown generation backend")

	// ErrMissingCredential is returned when neither the request nor the server supplies a credential.
	ErrMissingCredential = errors.New("no credential available for backend")

	// ErrEmptyOutput is returned when a backend answers successfully with no usable text.
	ErrEmptyOutput = errors.New("backend returned empty output")

	// ErrAttemptTimeout is returned when a single attempt exceeds its time budget.
	ErrAttemptTimeout = errors.New("attempt exceeded its time budget")

	// ErrContentBlocked is returned when a backend refuses to produce output for safety reasons.
	ErrContentBlocked = errors.New("content blocked by backend safety filters")
)

// Error is a classified failure of one backend interaction.
type Error struct {
	Kind    Kind
	Backend string
	Model   string
	Attempt int
	Err     error
}

// NewError wraps err with a kind. Backend, model and attempt are filled in
// by the chain as the error travels upward.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Backend != "" {
		msg += fmt.Sprintf(" [%s/%s]", e.Backend, e.Model)
	}
	if e.Attempt > 0 {
		msg += fmt.Sprintf(" attempt %d", e.Attempt)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf classifies an arbitrary error. Unclassified errors are treated as
// transport failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}

	switch {
	case errors.Is(err, ErrUnknownBackend), errors.Is(err, ErrMissingCredential):
		return KindConfiguration
	case errors.Is(err, ErrEmptyOutput), errors.Is(err, ErrContentBlocked):
		return KindEmptyOutput
	case errors.Is(err, ErrAttemptTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	return KindTransport
}

// KindForStatus maps an HTTP status code reported by a provider to a kind.
func KindForStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return KindAuthentication
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return KindTimeout
	case code == http.StatusBadRequest, code == http.StatusNotFound, code == http.StatusUnprocessableEntity:
		return KindConfiguration
	default:
		return KindTransport
	}
}

// annotate fills in the chain position of err, wrapping unclassified errors.
func annotate(err error, backend, model string, attempt int) *Error {
	var genErr *Error
	if errors.As(err, &genErr) {
		out := *genErr
		if out.Backend == "" {
			out.Backend = backend
			out.Model = model
		}
		if out.Attempt == 0 {
			out.Attempt = attempt
		}
		return &out
	}
	return &Error{Kind: KindOf(err), Backend: backend, Model: model, Attempt: attempt, Err: err}
}
