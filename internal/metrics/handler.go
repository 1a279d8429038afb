package metrics

import (
	"context"

	"github.com/phrazzld/docgen-api/internal/events"
)

var _ events.EventHandler = (*Metrics)(nil)

// HandleEvent records job lifecycle events.
func (m *Metrics) HandleEvent(_ context.Context, e *events.JobEvent) error {
	if m == nil || e == nil {
		return nil
	}
	switch e.Type {
	case events.TypeJobSubmitted:
		m.JobSubmitted()
	case events.TypeJobRejected:
		m.JobRejected(e.Reason)
	case events.TypeAttempt:
		outcome := e.Kind
		if outcome == "" {
			outcome = "success"
		}
		m.BackendAttempt(e.Backend, e.Model, outcome)
	case events.TypeJobCompleted:
		m.JobFinished("completed", "", e.Elapsed)
		m.Tokens(e.Backend, e.InputTokens, e.OutputTokens)
	case events.TypeJobFailed:
		m.JobFinished("failed", e.Kind, e.Elapsed)
	}
	return nil
}
