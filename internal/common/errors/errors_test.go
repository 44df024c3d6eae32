package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = stderrors.New("sentinel")

func TestNormalize(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Normalize(nil))
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		got := Normalize(stderrors.New("boom"))
		assert.Equal(t, ErrCodeInternal, got.Code)
		assert.Equal(t, "boom", got.Details)
	})

	t.Run("wrapped standard error passes through", func(t *testing.T) {
		orig := NewFormNotFoundError("abc")
		got := Normalize(fmt.Errorf("loading: %w", orig))
		assert.Same(t, orig, got)
	})
}

func TestStandardError_UnwrapKeepsSentinel(t *testing.T) {
	err := NewFormSaveFailedError(fmt.Errorf("%w: disk full", errSentinel))
	assert.True(t, stderrors.Is(err, errSentinel))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeFormNotFound, http.StatusNotFound},
		{ErrCodeFormValidationFailed, http.StatusUnprocessableEntity},
		{ErrCodeSubmissionInFlight, http.StatusConflict},
		{ErrCodeCatalogLoadFailed, http.StatusBadGateway},
		{ErrCodeTimeout, http.StatusGatewayTimeout},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("non retryable has zero retries", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewSubmissionBlockedError("required field empty"))
		assert.Equal(t, "SUBMISSION_BLOCKED", bpmn.Code)
		assert.Zero(t, bpmn.Retries)
		assert.False(t, bpmn.Retryable)
	})

	t.Run("retryable keeps recommended count and metadata", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewFormLoadFailedError("f-1", stderrors.New("conn reset")))
		assert.Equal(t, 3, bpmn.Retries)

		vars := bpmn.ToErrorVariables()
		require.Contains(t, vars, "formId")
		assert.Equal(t, "f-1", vars["formId"])
		assert.Equal(t, "FORM_LOAD_FAILED", vars["originalErrorCode"])
	})
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "FORM", GetErrorCategory(ErrCodeFormSaveFailed))
	assert.Equal(t, "CONNECTOR", GetErrorCategory(ErrCodePayloadInvalid))
	assert.Equal(t, "SUBMISSION", GetErrorCategory(ErrCodeNoConnectors))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidInput))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeTimeout))
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", NewSubmissionInFlightError())

	assert.True(t, HasCode(wrapped, ErrCodeSubmissionInFlight))
	assert.False(t, HasCode(wrapped, ErrCodeSubmissionBlocked))
	assert.False(t, HasCode(errSentinel, ErrCodeInternal))
	assert.False(t, HasCode(nil, ErrCodeInternal))
}
