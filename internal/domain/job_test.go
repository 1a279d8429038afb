package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlaceholder(t *testing.T) {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

	rec, err := NewPlaceholder("req-1", now)
	require.NoError(t, err)
	assert.Equal(t, JobStatusProcessing, rec.Status)
	assert.Equal(t, now, rec.CreatedAt)
	assert.Equal(t, now, rec.UpdatedAt)
	assert.Nil(t, rec.RawContent)
	assert.Nil(t, rec.Error)

	_, err = NewPlaceholder("", now)
	assert.ErrorIs(t, err, ErrEmptyRequestID)
}

func TestJobRecordComplete(t *testing.T) {
	start := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	rec, err := NewPlaceholder("req-1", start)
	require.NoError(t, err)

	done, err := rec.Complete(Completion{
		Backend:    "gemini",
		Model:      "gemini-2.0-flash",
		RawContent: "# A\nfoo",
		Sections:   []Section{{Title: "A", Content: "foo"}},
		Tokens:     TokenUsage{Input: 10, Output: 20},
	}, start.Add(1500*time.Millisecond))
	require.NoError(t, err)

	assert.Equal(t, JobStatusCompleted, done.Status)
	require.NotNil(t, done.RawContent)
	assert.Equal(t, "# A\nfoo", *done.RawContent)
	assert.Len(t, done.Sections, 1)
	assert.Nil(t, done.Error)
	assert.Equal(t, int64(1500), done.ProcessingTimeMs)
	assert.Equal(t, start, done.CreatedAt)

	_, err = done.Complete(Completion{RawContent: "again"}, start)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = done.Fail(JobError{Kind: "timeout_error"}, "", "", start)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestJobRecordFail(t *testing.T) {
	start := time.Now()
	rec, err := NewPlaceholder("req-2", start)
	require.NoError(t, err)

	failed, err := rec.Fail(JobError{
		Kind:     "timeout_error",
		Message:  "deadline exceeded",
		Attempts: 3,
	}, "openai", "gpt-4o", start.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, JobStatusFailed, failed.Status)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "timeout_error", failed.Error.Kind)
	assert.Nil(t, failed.RawContent)
	assert.Nil(t, failed.Sections)
	assert.Equal(t, "openai", failed.BackendUsed)
}

func TestJobRecordValidate(t *testing.T) {
	raw := "text"
	tests := []struct {
		name    string
		rec     JobRecord
		wantErr error
	}{
		{"empty id", JobRecord{Status: JobStatusProcessing}, ErrEmptyRequestID},
		{"bad status", JobRecord{RequestID: "x", Status: "queued"}, ErrInvalidJobStatus},
		{"completed without content", JobRecord{RequestID: "x", Status: JobStatusCompleted}, ErrCompletedWithoutResult},
		{
			"completed with error",
			JobRecord{RequestID: "x", Status: JobStatusCompleted, RawContent: &raw, Error: &JobError{}},
			ErrCompletedWithError,
		},
		{"failed without error", JobRecord{RequestID: "x", Status: JobStatusFailed}, ErrFailedWithoutError},
		{
			"failed with result",
			JobRecord{RequestID: "x", Status: JobStatusFailed, RawContent: &raw, Error: &JobError{}},
			ErrFailedWithResult,
		},
		{"processing with result", JobRecord{RequestID: "x", Status: JobStatusProcessing, RawContent: &raw}, ErrProcessingWithOutcome},
		{"processing", JobRecord{RequestID: "x", Status: JobStatusProcessing}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rec.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestJobRecordWithProgress(t *testing.T) {
	start := time.Now()
	rec, err := NewPlaceholder("req-3", start)
	require.NoError(t, err)

	updated, err := rec.WithProgress("attempt 1 failed", start.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "attempt 1 failed", updated.Progress)
	assert.Empty(t, rec.Progress, "original must not change")
}

func TestJobRecordJSONFieldNames(t *testing.T) {
	rec, err := NewPlaceholder("req-4", time.Now())
	require.NoError(t, err)
	done, err := rec.Complete(Completion{RawContent: "x", Sections: []Section{{Title: "T", Content: "x"}}}, time.Now())
	require.NoError(t, err)

	data, err := json.Marshal(done)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, key := range []string{"requestId", "status", "createdAt", "updatedAt", "rawContent", "sections", "tokensUsed"} {
		assert.Contains(t, fields, key)
	}
	assert.NotContains(t, fields, "error")
}
