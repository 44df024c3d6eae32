// Package errors provides the structured operational errors used by the form
// server, its HTTP API and the Zeebe worker. Validation findings on a form
// are data, not errors, and never travel through this package.
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
	ErrCodeFormNotFound             ErrorCode = "FORM_NOT_FOUND"
	ErrCodeFormValidationFailed     ErrorCode = "FORM_VALIDATION_FAILED"
	ErrCodeFormSaveFailed           ErrorCode = "FORM_SAVE_FAILED"
	ErrCodeFormLoadFailed           ErrorCode = "FORM_LOAD_FAILED"
	ErrCodeCatalogLoadFailed        ErrorCode = "CATALOG_LOAD_FAILED"
	ErrCodeConnectorExecutionFailed ErrorCode = "CONNECTOR_EXECUTION_FAILED"
	ErrCodeConnectorUnsupported     ErrorCode = "CONNECTOR_UNSUPPORTED"
	ErrCodePayloadInvalid           ErrorCode = "PAYLOAD_INVALID"
	ErrCodeSubmissionBlocked        ErrorCode = "SUBMISSION_BLOCKED"
	ErrCodeSubmissionInFlight       ErrorCode = "SUBMISSION_IN_FLIGHT"
	ErrCodeNoConnectors             ErrorCode = "NO_CONNECTORS"

	ErrCodeExternalService  ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout          ErrorCode = "TIMEOUT_ERROR"
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so errors.Is keeps working on sentinels.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata sets a metadata key and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 2. BPMN Error Integration
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

// ==========================
// 3. Error Constructors
// ==========================

func NewFormNotFoundError(formID string) *StandardError {
	return newError(ErrCodeFormNotFound, "Form not found", fmt.Sprintf("formId: %s", formID), false, nil).
		WithMetadata("formId", formID)
}

// NewFormValidationError reports a save or submit gate that refused the form.
func NewFormValidationError(details string) *StandardError {
	return newError(ErrCodeFormValidationFailed, "Form configuration is not valid", details, false, nil)
}

func NewFormSaveFailedError(err error) *StandardError {
	return newError(ErrCodeFormSaveFailed, "Failed to save form", detailsOf(err), true, err)
}

func NewFormLoadFailedError(formID string, err error) *StandardError {
	return newError(ErrCodeFormLoadFailed, "Failed to load form", detailsOf(err), true, err).
		WithMetadata("formId", formID)
}

func NewCatalogLoadFailedError(err error) *StandardError {
	return newError(ErrCodeCatalogLoadFailed, "Failed to load connectors", detailsOf(err), true, err)
}

func NewConnectorExecutionError(connectorID string, err error) *StandardError {
	return newError(ErrCodeConnectorExecutionFailed, "Connector execution failed", detailsOf(err), true, err).
		WithMetadata("connectorId", connectorID)
}

func NewConnectorUnsupportedError(connectorTypeID string) *StandardError {
	return newError(ErrCodeConnectorUnsupported, "Connector type is not supported",
		fmt.Sprintf("connectorTypeId: %s", connectorTypeID), false, nil)
}

func NewPayloadInvalidError(details string) *StandardError {
	return newError(ErrCodePayloadInvalid, "Connector payload is not valid", details, false, nil)
}

func NewSubmissionBlockedError(details string) *StandardError {
	return newError(ErrCodeSubmissionBlocked, "Submission is blocked by validation", details, false, nil)
}

func NewSubmissionInFlightError() *StandardError {
	return newError(ErrCodeSubmissionInFlight, "A submission is already executing", "", false, nil)
}

func NewNoConnectorsError() *StandardError {
	return newError(ErrCodeNoConnectors, "No connectors configured", "add at least one connector before submitting", false, nil)
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), detailsOf(err), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), detailsOf(err), true, err)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", service), details, false, nil)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", details, false, nil)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", detailsOf(err), false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeFormLoadFailed,
		ErrCodeFormSaveFailed,
		ErrCodeCatalogLoadFailed,
		ErrCodeExternalService:
		return 3
	case ErrCodeTimeout,
		ErrCodeConnectorExecutionFailed:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// Normalize converts any error into a StandardError. Errors that already are
// (or wrap) a StandardError pass through; everything else becomes INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// HasCode reports whether err is, or wraps, a StandardError carrying code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return stderrors.As(err, &stdErr) && stdErr.Code == code
}

// HTTPStatus maps an error code onto the status the API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeFormNotFound, ErrCodeResourceNotFound:
		return http.StatusNotFound
	case ErrCodeFormValidationFailed, ErrCodePayloadInvalid, ErrCodeSubmissionBlocked, ErrCodeNoConnectors:
		return http.StatusUnprocessableEntity
	case ErrCodeInvalidInput, ErrCodeConnectorUnsupported:
		return http.StatusBadRequest
	case ErrCodeSubmissionInFlight:
		return http.StatusConflict
	case ErrCodeCatalogLoadFailed, ErrCodeExternalService, ErrCodeConnectorExecutionFailed:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "FORM_"):
		return "FORM"
	case strings.HasPrefix(codeStr, "CATALOG_"), strings.HasPrefix(codeStr, "CONNECTOR_"), strings.HasPrefix(codeStr, "PAYLOAD_"):
		return "CONNECTOR"
	case strings.HasPrefix(codeStr, "SUBMISSION_"), code == ErrCodeNoConnectors:
		return "SUBMISSION"
	case strings.Contains(codeStr, "INVALID"), strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
