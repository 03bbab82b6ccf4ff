package api

import (
	"context"
	"os"
	"strconv"
	"time"
)

// Default retry configuration values
const (
	DefaultMaxRateLimitRetries   = 8
	DefaultMaxUnavailableRetries = 8
	DefaultRateLimitDelay        = 15 * time.Second
	DefaultUnavailableDelay      = 30 * time.Second
	DefaultConnectionRetryDelay  = 15 * time.Second
)

// RetryConfig holds the dispatcher's in-request retry behavior.
//
// A negative Max*Retries value removes the bound and retries until the
// server stops answering with that status or the context ends.
type RetryConfig struct {
	MaxRateLimitRetries   int
	MaxUnavailableRetries int
	RateLimitDelay        time.Duration
	UnavailableDelay      time.Duration
	ConnectionRetryDelay  time.Duration
}

// DefaultRetryConfig returns a RetryConfig populated from environment variables
// with fallback to default values.
//
// Environment variables:
//   - DRIP_MAX_RATE_LIMIT_RETRIES: max retries for 429 responses (default: 8)
//   - DRIP_MAX_UNAVAILABLE_RETRIES: max retries for 503 responses (default: 8)
//   - DRIP_RATE_LIMIT_DELAY: wait before retrying a 429 (default: "15s")
//   - DRIP_UNAVAILABLE_DELAY: wait before retrying a 503 (default: "30s")
//   - DRIP_CONNECTION_RETRY_DELAY: wait before the single connection retry (default: "15s")
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRateLimitRetries:   getEnvInt("DRIP_MAX_RATE_LIMIT_RETRIES", DefaultMaxRateLimitRetries),
		MaxUnavailableRetries: getEnvInt("DRIP_MAX_UNAVAILABLE_RETRIES", DefaultMaxUnavailableRetries),
		RateLimitDelay:        getEnvDuration("DRIP_RATE_LIMIT_DELAY", DefaultRateLimitDelay),
		UnavailableDelay:      getEnvDuration("DRIP_UNAVAILABLE_DELAY", DefaultUnavailableDelay),
		ConnectionRetryDelay:  getEnvDuration("DRIP_CONNECTION_RETRY_DELAY", DefaultConnectionRetryDelay),
	}
}

// getEnvInt reads an integer from an environment variable with a default fallback.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration from an environment variable with a default fallback.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultVal
}

// sleepWithContext waits for the duration or returns early on context cancellation.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
