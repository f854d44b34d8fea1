package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unified error code across the pipeline.
type ErrorCode string

// Generation pipeline error codes
const (
	ErrAmbiguousIntent      ErrorCode = "AMBIGUOUS_INTENT"
	ErrMissingRequiredField ErrorCode = "MISSING_REQUIRED_FIELD"
	ErrGenerationProvider   ErrorCode = "GENERATION_PROVIDER_ERROR"
	ErrDownloadFailed       ErrorCode = "DOWNLOAD_FAILED"
	ErrGenerationTimeout    ErrorCode = "GENERATION_TIMEOUT"
	ErrValidationProvider   ErrorCode = "VALIDATION_PROVIDER_ERROR"
	ErrStorageFailed        ErrorCode = "STORAGE_FAILED"
	ErrUnsupportedKind      ErrorCode = "UNSUPPORTED_KIND"
	ErrSessionNotFound      ErrorCode = "SESSION_NOT_FOUND"
	ErrSessionBusy          ErrorCode = "SESSION_BUSY"
	ErrArtifactNotFound     ErrorCode = "ARTIFACT_NOT_FOUND"
)

// API error codes
const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrForbidden          ErrorCode = "FORBIDDEN"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrTimeout            ErrorCode = "TIMEOUT"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Field      string    `json:"field,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// WithField sets the request field the error refers to.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// NewAmbiguousIntentError reports that no generation kind could be determined.
func NewAmbiguousIntentError(message string) *Error {
	return NewError(ErrAmbiguousIntent, message).WithHTTPStatus(http.StatusUnprocessableEntity)
}

// NewMissingFieldError reports a kind-mandatory field that could not be resolved.
func NewMissingFieldError(field string) *Error {
	return NewError(ErrMissingRequiredField, fmt.Sprintf("missing required field %q", field)).
		WithField(field).
		WithHTTPStatus(http.StatusUnprocessableEntity)
}

// NewGenerationProviderError wraps a failure returned by an image or video provider.
func NewGenerationProviderError(provider string, cause error) *Error {
	return NewError(ErrGenerationProvider, "generation provider failed").
		WithProvider(provider).
		WithCause(cause).
		WithRetryable(true).
		WithHTTPStatus(http.StatusBadGateway)
}

// NewDownloadError wraps a failure fetching a generated asset.
func NewDownloadError(url string, cause error) *Error {
	return NewError(ErrDownloadFailed, "failed to download "+url).
		WithCause(cause).
		WithRetryable(true).
		WithHTTPStatus(http.StatusBadGateway)
}

// NewGenerationTimeoutError reports that an asynchronous job missed its deadline.
func NewGenerationTimeoutError(provider, jobID string) *Error {
	return NewError(ErrGenerationTimeout, fmt.Sprintf("job %s did not complete before the deadline", jobID)).
		WithProvider(provider).
		WithRetryable(true).
		WithHTTPStatus(http.StatusGatewayTimeout)
}

// NewValidationProviderError wraps a transport or parse failure of the validator.
func NewValidationProviderError(provider string, cause error) *Error {
	return NewError(ErrValidationProvider, "validation provider failed").
		WithProvider(provider).
		WithCause(cause).
		WithHTTPStatus(http.StatusBadGateway)
}

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && GetErrorCode(err) == code
}

// IsExtractionError reports whether err should be surfaced as a clarification request.
func IsExtractionError(err error) bool {
	return IsCode(err, ErrAmbiguousIntent) || IsCode(err, ErrMissingRequiredField)
}

// IsGenerationError reports whether err is one of the retryable generation failures.
func IsGenerationError(err error) bool {
	switch GetErrorCode(err) {
	case ErrGenerationProvider, ErrDownloadFailed, ErrGenerationTimeout:
		return true
	}
	return false
}
