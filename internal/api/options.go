package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Client in New.
type Option func(*Client) error

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client must not be nil")
		}
		c.HTTP = hc
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.HTTP.Timeout = d
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		c.UserAgent = ua
		return nil
	}
}

// WithLogger injects the logger used for retry and failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		c.Logger = logger
		return nil
	}
}

// WithRetryConfig overrides the environment-derived retry configuration.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) error {
		c.RetryConfig = cfg
		return nil
	}
}

// WithSleeper replaces the function used to wait between retries.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) error {
		if s == nil {
			return errors.New("sleeper must not be nil")
		}
		c.sleep = s
		return nil
	}
}

// WithThrottle limits outbound requests to rps per second with the given burst.
// It must come after WithHTTPClient when both are used.
func WithThrottle(rps, burst int) Option {
	return func(c *Client) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustNotBeZero)
		}
		next := c.HTTP.Transport
		if next == nil {
			next = http.DefaultTransport
		}
		rt, err := NewThrottledTransport(rps, burst, c.logger, next)
		if err != nil {
			return err
		}
		c.HTTP.Transport = rt
		return nil
	}
}
