package formsubmit

import (
	"context"
	"testing"
	"time"

	"form-connectors/internal/common/errors"
	"form-connectors/internal/common/logger"
	"form-connectors/internal/connectors/executor"
	"form-connectors/internal/submission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, formID string, values map[string]interface{}) (submission.Outcome, error) {
	args := m.Called(ctx, formID, values)
	return args.Get(0).(submission.Outcome), args.Error(1)
}

func createTestOutcome() submission.Outcome {
	return submission.Outcome{
		SubmissionID: "sub-1",
		SubmittedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Results: []executor.Result{
			{BindingID: "connector-1", ConnectorID: "wh-1", Label: "Ops webhook", Status: executor.StatusOK},
			{BindingID: "connector-2", ConnectorID: "idx-1", Label: "Form index", Status: executor.StatusError, Message: "indexing failed: timeout"},
		},
		Succeeded: 1,
		Failed:    1,
	}
}

func createTestInput() *Input {
	return &Input{
		FormID:      "6f1c2d4e-0000-4000-8000-000000000001",
		FieldValues: map[string]interface{}{"message": "disk full"},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	runner := &mockRunner{}
	input := createTestInput()
	runner.On("Run", mock.Anything, input.FormID, input.FieldValues).Return(createTestOutcome(), nil)

	h := NewHandler(LoadConfig(), runner, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, "sub-1", out.SubmissionID)
	assert.Equal(t, "2026-03-01T12:00:00Z", out.SubmittedAt)
	assert.Equal(t, 1, out.Succeeded)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Results, 2)
	assert.Equal(t, ConnectorResult{ConnectorID: "idx-1", Label: "Form index", Status: "error", Message: "indexing failed: timeout"}, out.Results[1])
	runner.AssertExpectations(t)
}

func TestHandler_Execute_FailOnConnectorError(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(createTestOutcome(), nil)

	h := NewHandler(&Config{Timeout: time.Second, FailOnConnectorError: true}, runner, logger.NewTestLogger(t))
	_, err := h.Execute(context.Background(), createTestInput())

	require.Error(t, err)
	se := errors.Normalize(err)
	assert.Equal(t, errors.ErrCodeConnectorExecutionFailed, se.Code)
	assert.Contains(t, se.Details, "Form index: indexing failed: timeout")
	assert.True(t, se.Retryable)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_MissingFormID(t *testing.T) {
	runner := &mockRunner{}
	h := NewHandler(nil, runner, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{FormID: "  "})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_BlockedIsNotRetryable(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(submission.Outcome{}, errors.NewSubmissionBlockedError("required fields are empty"))

	h := NewHandler(nil, runner, logger.NewTestLogger(t))
	_, err := h.Execute(context.Background(), createTestInput())

	require.Error(t, err)
	bpmn := errors.ConvertToBPMNError(errors.Normalize(err))
	assert.Equal(t, "SUBMISSION_BLOCKED", bpmn.Code)
	assert.Equal(t, 0, bpmn.Retries)
}

func TestHandler_Execute_FormNotFound(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Return(submission.Outcome{}, errors.NewFormNotFoundError("missing"))

	h := NewHandler(nil, runner, logger.NewTestLogger(t))
	_, err := h.Execute(context.Background(), createTestInput())
	assert.True(t, errors.HasCode(err, errors.ErrCodeFormNotFound))
}
