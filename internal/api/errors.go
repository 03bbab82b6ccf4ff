package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a hard failure: a non-2xx status the dispatcher does not retry.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
	Payload    string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s failed (status %d): %s", e.Method, e.URL, e.StatusCode, strings.TrimSpace(e.Body))
}

// RetryExhaustedError is returned when a 429 or 503 persisted past the
// configured retry bound.
type RetryExhaustedError struct {
	StatusCode int
	Method     string
	URL        string
	Attempts   int
	RateLimit  *RateLimitInfo
}

func (e *RetryExhaustedError) Error() string {
	reason := "service unavailable"
	if e.StatusCode == http.StatusTooManyRequests {
		reason = "rate limit exceeded"
	}
	return fmt.Sprintf("%s %s: %s after %d attempts", e.Method, e.URL, reason, e.Attempts)
}

// ConnectionError is a transport-level failure that survived its single retry.
type ConnectionError struct {
	Method string
	URL    string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: connection failed: %v", e.Method, e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsRateLimitError checks if the error is an exhausted 429 retry.
func IsRateLimitError(err error) bool {
	var e *RetryExhaustedError
	return errors.As(err, &e) && e.StatusCode == http.StatusTooManyRequests
}

// IsUnavailableError checks if the error is an exhausted 503 retry.
func IsUnavailableError(err error) bool {
	var e *RetryExhaustedError
	return errors.As(err, &e) && e.StatusCode == http.StatusServiceUnavailable
}

// IsConnectionError checks if the error is a transport failure.
func IsConnectionError(err error) bool {
	var e *ConnectionError
	return errors.As(err, &e)
}

// IsAuthError checks if the API rejected the credential.
func IsAuthError(err error) bool {
	var e *APIError
	return errors.As(err, &e) && (e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// IsNotFoundError checks if the error indicates a resource was not found.
func IsNotFoundError(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}

// IsRequestFailure reports whether err came out of a request/response cycle,
// as opposed to cancellation or a local encoding problem. These are the
// failures the outer retry policy re-runs.
func IsRequestFailure(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	var exhausted *RetryExhaustedError
	var connErr *ConnectionError
	return errors.As(err, &apiErr) || errors.As(err, &exhausted) || errors.As(err, &connErr)
}
