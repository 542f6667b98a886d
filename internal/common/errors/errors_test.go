package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_IsMatchesByCode(t *testing.T) {
	upstream := NewUpstreamModelError("describe-room", stderrors.New("503 from model"))
	wrapped := NewStageError(StageDescribingRoom, upstream)

	assert.True(t, stderrors.Is(wrapped, ErrUpstreamModel))
	assert.False(t, stderrors.Is(wrapped, ErrRetrieval))
	assert.False(t, stderrors.Is(wrapped, ErrTimeout))

	var stdErr *StandardError
	require.True(t, stderrors.As(wrapped, &stdErr))
	assert.Equal(t, ErrCodeUpstreamModelFailed, stdErr.Code)
}

func TestStandardError_UnwrapsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := NewRetrievalError("embed", cause)
	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "RETRIEVAL_FAILED")
}

func TestFailedStage(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewStageError(StageRetrieving, NewRetrievalError("query", stderrors.New("x"))))
	stage, ok := FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, StageRetrieving, stage)

	_, ok = FailedStage(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError("message: required"), http.StatusBadRequest},
		{"upstream", NewStageError(StageSynthesizing, NewUpstreamModelError("synthesize", stderrors.New("x"))), http.StatusBadGateway},
		{"retrieval", NewStageError(StageRetrieving, NewRetrievalError("query", stderrors.New("x"))), http.StatusBadGateway},
		{"timeout", NewStageError(StageRetrieving, NewTimeoutError(StageRetrieving, 0)), http.StatusGatewayTimeout},
		{"not found", NewResourceNotFoundError("catalog", "id"), http.StatusNotFound},
		{"plain", stderrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage_DoesNotLeakCause(t *testing.T) {
	err := NewStageError(StageDescribingRoom,
		NewUpstreamModelError("describe-room", stderrors.New("gemini-1.5-flash at https://generativelanguage.googleapis.com returned 500")))

	msg := PublicMessage(err)
	assert.NotContains(t, msg, "gemini")
	assert.NotContains(t, msg, "googleapis")
	assert.NotEmpty(t, msg)

	assert.Equal(t, "invalid request: image: is required", PublicMessage(NewValidationError("image: is required")))
}

func TestConvertToBPMNError(t *testing.T) {
	err := NewStageError(StageSynthesizing, NewUpstreamModelError("synthesize", stderrors.New("x")))
	bpmn := ConvertToBPMNError(err)

	assert.Equal(t, "LLM_SYNTHESIS_FAILED", bpmn.Code)
	assert.True(t, bpmn.Retryable)
	assert.Equal(t, 2, bpmn.Retries)
	assert.Equal(t, "Synthesizing", bpmn.ErrorVariables["failedStage"])

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "LLM_SYNTHESIS_FAILED", vars["errorCode"])
	assert.Equal(t, string(ErrCodeUpstreamModelFailed), vars["originalErrorCode"])

	_, parseErr := time.Parse(time.RFC3339, vars["timestamp"].(string))
	assert.NoError(t, parseErr)
}

func TestConvertToBPMNError_NonRetryable(t *testing.T) {
	bpmn := ConvertToBPMNError(NewValidationError("image: is required"))
	assert.Equal(t, "RECOMMENDATION_INPUT_INVALID", bpmn.Code)
	assert.Equal(t, 0, bpmn.Retries)

	plain := ConvertToBPMNError(stderrors.New("boom"))
	assert.Equal(t, string(ErrCodeInternal), plain.Code)
	assert.False(t, plain.Retryable)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeValidationFailed))
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeUpstreamModelFailed))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeRetrievalFailed))
	assert.Equal(t, "TIMEOUT", GetErrorCategory(ErrCodePipelineTimeout))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}
