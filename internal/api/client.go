package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultEndpoint = "https://api.getdrip.com/v2/"
	DefaultTimeout  = 30 * time.Second
)

// Client is the Drip API client.
//
// A Client holds no mutable state after construction. Every call builds its
// URL from the immutable account context and performs its own request/retry
// cycle, so one Client can be shared freely.
type Client struct {
	Endpoint    string
	APIToken    string
	AccountID   string
	HTTP        *http.Client
	UserAgent   string
	RetryConfig RetryConfig
	Logger      *slog.Logger

	sleep Sleeper
}

// Compile-time interface implementation checks
var (
	_ Dispatcher  = (*Client)(nil)
	_ Subscribers = (*Client)(nil)
)

var errInvalidRequest = errors.New("failed to create request")

// Sleeper waits for d or returns early when ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// New creates a new Drip API client. An empty endpoint selects DefaultEndpoint.
func New(endpoint, token, accountID string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("api token is required")
	}
	if accountID == "" {
		return nil, errors.New("account id is required")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	baseTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		baseTransport = &http.Transport{}
	}
	transport := baseTransport.Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	} else {
		transport.TLSClientConfig = transport.TLSClientConfig.Clone()
	}
	transport.TLSClientConfig.MinVersion = tls.VersionTLS12

	c := &Client{
		Endpoint:    endpoint,
		APIToken:    token,
		AccountID:   accountID,
		RetryConfig: DefaultRetryConfig(),
		Logger:      slog.Default(),
		HTTP: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: transport,
		},
		sleep: sleepWithContext,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Paths returns the path builder bound to this client's account context.
func (c *Client) Paths() PathBuilder {
	return PathBuilder{Endpoint: c.Endpoint, AccountID: c.AccountID}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	if c.sleep != nil {
		return c.sleep(ctx, d)
	}
	return sleepWithContext(ctx, d)
}

// Dispatch performs one logical request against rawURL and classifies the outcome.
//
// GET payload values are sent as query parameters; POST payloads are sent as a
// JSON body. Rate limiting (429) and unavailability (503) are retried after
// fixed delays up to the configured bounds, transport failures are retried
// once, and any other non-2xx status is returned as *APIError.
func (c *Client) Dispatch(ctx context.Context, method, rawURL string, payload map[string]any) (*Response, error) {
	var body []byte
	switch method {
	case http.MethodGet:
		if len(payload) > 0 {
			u, err := url.Parse(rawURL)
			if err != nil {
				return nil, fmt.Errorf("invalid request url: %w", err)
			}
			q := u.Query()
			for k, v := range payload {
				q.Set(k, fmt.Sprint(v))
			}
			u.RawQuery = q.Encode()
			rawURL = u.String()
		}
	case http.MethodPost:
		if payload == nil {
			payload = map[string]any{}
		}
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}

	// One correlation id covers every attempt of this call.
	requestID := uuid.NewString()
	var retries429, retries503, connRetries int
	attempt := 0

	for {
		attempt++
		start := time.Now()

		resp, respBody, err := c.roundTrip(ctx, method, rawURL, body, requestID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			// Malformed requests and throttle refusals never reached the wire.
			if errors.Is(err, errInvalidRequest) || errors.Is(err, ErrWaitingFailed) || errors.Is(err, ErrContextEnded) {
				return nil, err
			}
			if connRetries < 1 {
				connRetries++
				c.logger().Info("connection failed, retrying", "method", method, "url", rawURL, "request_id", requestID, "delay", c.RetryConfig.ConnectionRetryDelay, "error", err)
				if err := c.wait(ctx, c.RetryConfig.ConnectionRetryDelay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, &ConnectionError{Method: method, URL: rawURL, Err: err}
		}
		c.logger().Debug("request complete", "method", method, "url", rawURL, "request_id", requestID, "status", resp.StatusCode, "attempt", attempt, "duration", time.Since(start))

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			return c.decode(resp.StatusCode, respBody), nil

		case resp.StatusCode == http.StatusAccepted:
			return &Response{StatusCode: resp.StatusCode, Body: map[string]any{}}, nil

		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if len(bytes.TrimSpace(respBody)) == 0 {
				return &Response{StatusCode: resp.StatusCode, Body: map[string]any{}}, nil
			}
			return c.decode(resp.StatusCode, respBody), nil

		case resp.StatusCode == http.StatusTooManyRequests:
			if !withinBound(retries429, c.RetryConfig.MaxRateLimitRetries) {
				return nil, &RetryExhaustedError{
					StatusCode: resp.StatusCode,
					Method:     method,
					URL:        rawURL,
					Attempts:   attempt,
					RateLimit:  parseRateLimitInfo(resp.Header, time.Now()),
				}
			}
			retries429++
			c.logger().Info("rate limited, retrying", "url", rawURL, "delay", c.RetryConfig.RateLimitDelay, "attempt", retries429)
			if err := c.wait(ctx, c.RetryConfig.RateLimitDelay); err != nil {
				return nil, err
			}

		case resp.StatusCode == http.StatusServiceUnavailable:
			if !withinBound(retries503, c.RetryConfig.MaxUnavailableRetries) {
				return nil, &RetryExhaustedError{
					StatusCode: resp.StatusCode,
					Method:     method,
					URL:        rawURL,
					Attempts:   attempt,
				}
			}
			retries503++
			c.logger().Info("service unavailable, retrying", "url", rawURL, "delay", c.RetryConfig.UnavailableDelay, "attempt", retries503)
			if err := c.wait(ctx, c.RetryConfig.UnavailableDelay); err != nil {
				return nil, err
			}

		default:
			c.logger().Error("request failed", "method", method, "url", rawURL, "request_id", requestID, "status", resp.StatusCode, "body", string(respBody))
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Method:     method,
				URL:        rawURL,
				Body:       string(respBody),
				Payload:    string(body),
				RequestID:  requestIDFromHeader(resp.Header, requestID),
			}
		}
	}
}

// roundTrip sends a single request and reads the whole response body.
func (c *Client) roundTrip(ctx context.Context, method, rawURL string, body []byte, requestID string) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	req.SetBasicAuth(c.APIToken, "")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, respBody, nil
}

// decode turns a success body into a Response. Valid JSON that is not an
// object is returned raw; a body that is not JSON at all is logged and
// surfaced raw with DecodeErr set. Neither is an error.
func (c *Client) decode(status int, body []byte) *Response {
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && json.Valid(body) {
			return &Response{StatusCode: status, Raw: body}
		}
		c.logger().Error("error while decoding response", "status", status, "error", err)
		return &Response{StatusCode: status, Raw: body, DecodeErr: err}
	}
	if decoded == nil {
		decoded = map[string]any{}
	}
	return &Response{StatusCode: status, Body: decoded}
}

// withinBound reports whether another retry is allowed. Negative max means unbounded.
func withinBound(done, limit int) bool {
	return limit < 0 || done < limit
}

// requestIDFromHeader prefers the id the server echoed back, falling back to
// the one sent with the request.
func requestIDFromHeader(header http.Header, sent string) string {
	if id := header.Get("X-Request-Id"); id != "" {
		return id
	}
	return sent
}
