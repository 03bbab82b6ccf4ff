package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/springboard/drip-cli/internal/api"
	"github.com/springboard/drip-cli/internal/config"
	"github.com/springboard/drip-cli/internal/debug"
)

// outerRetryConfig supplies the whole-operation retry policy. Tests replace it
// to avoid real waits.
var outerRetryConfig = api.DefaultOuterRetryConfig

type clientFactory struct {
	profile   string
	endpoint  string
	timeout   time.Duration
	userAgent string
}

func newClientFactory() *clientFactory {
	return &clientFactory{
		profile:   flags.Profile,
		endpoint:  flags.Endpoint,
		timeout:   flags.Timeout,
		userAgent: fmt.Sprintf("drip-cli/%s", version),
	}
}

// getClient resolves credentials and returns the raw client together with the
// Subscribers implementation commands should call.
func getClient(ctx context.Context) (*api.Client, api.Subscribers, error) {
	return newClientFactory().build(ctx)
}

func (f *clientFactory) build(ctx context.Context) (*api.Client, api.Subscribers, error) {
	cfg, err := config.ResolveClientConfig(f.profile, f.endpoint)
	if err != nil {
		return nil, nil, err
	}
	logger := debug.Logger(ctx)
	logger.Debug("resolved credentials", "source", cfg.Source, "endpoint", cfg.Endpoint, "account_id", cfg.AccountID)

	opts := []api.Option{
		api.WithLogger(logger),
		api.WithUserAgent(f.userAgent),
		api.WithRetryConfig(retryOverrides(api.DefaultRetryConfig())),
	}
	if f.timeout > 0 {
		opts = append(opts, api.WithTimeout(f.timeout))
	}
	if flags.ThrottleRPS > 0 {
		opts = append(opts, api.WithThrottle(flags.ThrottleRPS, flags.ThrottleRPS))
	}

	client, err := api.New(cfg.Endpoint, cfg.Token, cfg.AccountID, opts...)
	if err != nil {
		return nil, nil, err
	}
	if flags.NoRetry {
		return client, client, nil
	}
	return client, api.NewRetryingClient(client, outerRetryConfig()).WithLogger(logger), nil
}

// retryOverrides applies the retry flags the user set on top of cfg.
func retryOverrides(cfg api.RetryConfig) api.RetryConfig {
	if flags.MaxRateLimitRetriesSet {
		cfg.MaxRateLimitRetries = flags.MaxRateLimitRetries
	}
	if flags.MaxUnavailableRetriesSet {
		cfg.MaxUnavailableRetries = flags.MaxUnavailableRetries
	}
	if flags.RateLimitDelaySet {
		cfg.RateLimitDelay = flags.RateLimitDelay
	}
	if flags.UnavailableDelaySet {
		cfg.UnavailableDelay = flags.UnavailableDelay
	}
	return cfg
}
