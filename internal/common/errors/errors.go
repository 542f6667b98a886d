// Package errors provides the typed error taxonomy shared by the pipeline,
// the HTTP layer and the Camunda job worker.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeUpstreamModelFailed ErrorCode = "UPSTREAM_MODEL_FAILED"
	ErrCodeRetrievalFailed     ErrorCode = "RETRIEVAL_FAILED"
	ErrCodePipelineTimeout     ErrorCode = "PIPELINE_TIMEOUT"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeNotFound        ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any *StandardError carrying the same code, so sentinel values
// like ErrUpstreamModel work with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrValidation    = &StandardError{Code: ErrCodeValidationFailed}
	ErrUpstreamModel = &StandardError{Code: ErrCodeUpstreamModelFailed}
	ErrRetrieval     = &StandardError{Code: ErrCodeRetrievalFailed}
	ErrTimeout       = &StandardError{Code: ErrCodePipelineTimeout}
)

// ==========================
// 2. Pipeline stage failures
// ==========================

// Stage names a step of the room recommendation pipeline.
type Stage string

const (
	StageStart          Stage = "Start"
	StageDescribingRoom Stage = "DescribingRoom"
	StageComposingQuery Stage = "ComposingQuery"
	StageRetrieving     Stage = "Retrieving"
	StageSynthesizing   Stage = "Synthesizing"
	StageDone           Stage = "Done"
)

// StageError is the terminal Failed(stage, cause) state of a pipeline run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err as the failure of stage.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationError creates a non-retryable request validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamModelError creates an error for a failed, timed out or
// unusable generative model call.
func NewUpstreamModelError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamModelFailed,
		Message:   "Generative model call failed",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewRetrievalError creates an error for a failed embedding or vector index call.
func NewRetrievalError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRetrievalFailed,
		Message:   "Catalog retrieval failed",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewTimeoutError creates an error for a request deadline that expired
// before a stage could start or complete.
func NewTimeoutError(stage Stage, remaining time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodePipelineTimeout,
		Message:   "Request deadline exceeded",
		Details:   fmt.Sprintf("stage: %s, remaining: %s", stage, remaining),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. HTTP mapping
// ==========================

// publicMessages never include cause detail, model names or endpoints.
var publicMessages = map[ErrorCode]string{
	ErrCodeValidationFailed:    "invalid request",
	ErrCodeUpstreamModelFailed: "the assistant is temporarily unavailable",
	ErrCodeRetrievalFailed:     "the assistant is temporarily unavailable",
	ErrCodePipelineTimeout:     "the assistant took too long to respond",
	ErrCodeExternalService:     "a backing service is temporarily unavailable",
	ErrCodeNotFound:            "not found",
	ErrCodeInternal:            "internal error",
}

// CodeOf returns the ErrorCode carried by err, or INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// HTTPStatus maps an error to the response status of the HTTP layer.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUpstreamModelFailed, ErrCodeRetrievalFailed, ErrCodeExternalService:
		return http.StatusBadGateway
	case ErrCodePipelineTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns a caller-safe message for err. Validation errors keep
// their details since they only describe the caller's own input.
func PublicMessage(err error) string {
	code := CodeOf(err)
	if code == ErrCodeValidationFailed {
		var stdErr *StandardError
		if stderrors.As(err, &stdErr) && stdErr.Details != "" {
			return publicMessages[code] + ": " + stdErr.Details
		}
	}
	return publicMessages[code]
}

// FailedStage returns the stage a pipeline error occurred in, if any.
func FailedStage(err error) (Stage, bool) {
	var stageErr *StageError
	if stderrors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}

// ==========================
// 5. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidationFailed:    "RECOMMENDATION_INPUT_INVALID",
	ErrCodeUpstreamModelFailed: "LLM_SYNTHESIS_FAILED",
	ErrCodeRetrievalFailed:     "SEARCH_QUERY_FAILED",
	ErrCodePipelineTimeout:     "LLM_TIMEOUT",
}

// GetRetryCount returns how many job retries the engine should grant.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUpstreamModelFailed, ErrCodeRetrievalFailed, ErrCodeExternalService:
		return 2
	case ErrCodePipelineTimeout:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts any error to a BPMNError for Camunda.
func ConvertToBPMNError(err error) *BPMNError {
	stdErr := Normalize(err)
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}
	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if stage, ok := FailedStage(err); ok {
		vars["failedStage"] = string(stage)
	}
	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "MODEL"):
		return "AI"
	case strings.Contains(codeStr, "RETRIEVAL"):
		return "SEARCH"
	case strings.Contains(codeStr, "TIMEOUT"):
		return "TIMEOUT"
	default:
		return "OTHER"
	}
}
