package api

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is a machine-readable error class for JSON error output.
type ErrorCode string

const (
	ErrBadRequest   ErrorCode = "bad_request"       // 400
	ErrUnauthorized ErrorCode = "unauthorized"      // 401
	ErrForbidden    ErrorCode = "forbidden"         // 403
	ErrNotFound     ErrorCode = "not_found"         // 404
	ErrValidation   ErrorCode = "validation_failed" // 422
	ErrRateLimited  ErrorCode = "rate_limited"      // 429 past the retry bound
	ErrUnavailable  ErrorCode = "unavailable"       // 503 past the retry bound
	ErrServerError  ErrorCode = "server_error"      // other 5xx
	ErrNetwork      ErrorCode = "network"           // transport failure
	ErrUnknown      ErrorCode = "unknown"
)

// IsRetryable returns true if errors with this code may succeed on retry.
func (c ErrorCode) IsRetryable() bool {
	switch c {
	case ErrRateLimited, ErrUnavailable, ErrServerError, ErrNetwork:
		return true
	default:
		return false
	}
}

// Suggestion returns a human-readable hint for resolving this error.
func (c ErrorCode) Suggestion() string {
	switch c {
	case ErrUnauthorized:
		return "Run 'drip auth login' with a valid API token"
	case ErrForbidden:
		return "Check that the token has access to this account"
	case ErrNotFound:
		return "Verify the subscriber id or email and the account id"
	case ErrValidation, ErrBadRequest:
		return "Check the input values"
	case ErrRateLimited:
		return "Drip allows 3600 requests per hour; wait and retry or use --throttle-rps"
	case ErrUnavailable, ErrServerError:
		return "Drip is having trouble; try again later"
	case ErrNetwork:
		return "Check network connectivity and the --endpoint value"
	default:
		return ""
	}
}

// ErrorCodeFromStatus maps an HTTP status code to an ErrorCode.
func ErrorCodeFromStatus(statusCode int) ErrorCode {
	switch statusCode {
	case 400:
		return ErrBadRequest
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 422:
		return ErrValidation
	case 429:
		return ErrRateLimited
	case 503:
		return ErrUnavailable
	default:
		if statusCode >= 500 && statusCode < 600 {
			return ErrServerError
		}
		return ErrUnknown
	}
}

// StructuredError provides machine-readable error information.
type StructuredError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	Suggestion string         `json:"suggestion,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

func (e *StructuredError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewStructuredError creates a StructuredError from an ErrorCode and message.
func NewStructuredError(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:       code,
		Message:    message,
		Retryable:  code.IsRetryable(),
		Suggestion: code.Suggestion(),
	}
}

// StructuredErrorFromError converts any error into a StructuredError.
func StructuredErrorFromError(err error) *StructuredError {
	if err == nil {
		return nil
	}

	var se *StructuredError
	if errors.As(err, &se) {
		return se
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		out := NewStructuredError(ErrorCodeFromStatus(apiErr.StatusCode), strings.TrimSpace(apiErr.Body))
		out.Context = map[string]any{
			"status_code": apiErr.StatusCode,
			"url":         apiErr.URL,
		}
		if apiErr.RequestID != "" {
			out.Context["request_id"] = apiErr.RequestID
		}
		return out
	}

	var exhausted *RetryExhaustedError
	if errors.As(err, &exhausted) {
		out := NewStructuredError(ErrorCodeFromStatus(exhausted.StatusCode), exhausted.Error())
		out.Context = map[string]any{
			"status_code": exhausted.StatusCode,
			"attempts":    exhausted.Attempts,
		}
		if meta := exhausted.RateLimit.Meta(); meta != nil {
			out.Context["rate_limit"] = meta
		}
		return out
	}

	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		out := NewStructuredError(ErrNetwork, connErr.Error())
		out.Context = map[string]any{"url": connErr.URL}
		return out
	}

	return &StructuredError{Code: ErrUnknown, Message: err.Error()}
}
