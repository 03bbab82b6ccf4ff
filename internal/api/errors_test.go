package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	apiErr := &APIError{StatusCode: 422, Method: "POST", URL: "https://x/s", Body: "{\"errors\":[]}\n"}
	if got := apiErr.Error(); got != `POST https://x/s failed (status 422): {"errors":[]}` {
		t.Errorf("APIError.Error() = %q", got)
	}

	rl := &RetryExhaustedError{StatusCode: 429, Method: "GET", URL: "https://x", Attempts: 9}
	if !strings.Contains(rl.Error(), "rate limit exceeded after 9 attempts") {
		t.Errorf("RetryExhaustedError.Error() = %q", rl.Error())
	}
	un := &RetryExhaustedError{StatusCode: 503, Method: "GET", URL: "https://x", Attempts: 2}
	if !strings.Contains(un.Error(), "service unavailable after 2 attempts") {
		t.Errorf("RetryExhaustedError.Error() = %q", un.Error())
	}

	cause := errors.New("dial tcp: refused")
	conn := &ConnectionError{Method: "GET", URL: "https://x", Err: cause}
	if !errors.Is(conn, cause) {
		t.Error("ConnectionError should unwrap to its cause")
	}
}

func TestErrorPredicates(t *testing.T) {
	wrap := func(err error) error { return fmt.Errorf("op: %w", err) }

	tests := []struct {
		name       string
		err        error
		rateLimit  bool
		unavail    bool
		conn       bool
		auth       bool
		notFound   bool
		reqFailure bool
	}{
		{name: "nil"},
		{name: "plain", err: errors.New("x")},
		{name: "cancelled", err: context.Canceled},
		{name: "429 exhausted", err: wrap(&RetryExhaustedError{StatusCode: 429}), rateLimit: true, reqFailure: true},
		{name: "503 exhausted", err: wrap(&RetryExhaustedError{StatusCode: 503}), unavail: true, reqFailure: true},
		{name: "connection", err: wrap(&ConnectionError{Err: errors.New("x")}), conn: true, reqFailure: true},
		{name: "401", err: wrap(&APIError{StatusCode: 401}), auth: true, reqFailure: true},
		{name: "403", err: &APIError{StatusCode: 403}, auth: true, reqFailure: true},
		{name: "404", err: &APIError{StatusCode: 404}, notFound: true, reqFailure: true},
		{name: "500", err: &APIError{StatusCode: 500}, reqFailure: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimitError(tt.err); got != tt.rateLimit {
				t.Errorf("IsRateLimitError = %v", got)
			}
			if got := IsUnavailableError(tt.err); got != tt.unavail {
				t.Errorf("IsUnavailableError = %v", got)
			}
			if got := IsConnectionError(tt.err); got != tt.conn {
				t.Errorf("IsConnectionError = %v", got)
			}
			if got := IsAuthError(tt.err); got != tt.auth {
				t.Errorf("IsAuthError = %v", got)
			}
			if got := IsNotFoundError(tt.err); got != tt.notFound {
				t.Errorf("IsNotFoundError = %v", got)
			}
			if got := IsRequestFailure(tt.err); got != tt.reqFailure {
				t.Errorf("IsRequestFailure = %v", got)
			}
		})
	}
}
