package api

import (
	"context"
	"log/slog"
	"time"
)

// Default outer retry policy values
const (
	DefaultOuterAttempts = 3
	DefaultOuterDelay    = 1 * time.Second
	DefaultOuterBackoff  = 2.0
)

// OuterRetryConfig controls how RetryingClient re-runs whole operations.
type OuterRetryConfig struct {
	Attempts int           // total tries, including the first
	Delay    time.Duration // wait before the second try
	Backoff  float64       // multiplier applied to Delay after each retry
	RetryIf  func(error) bool
}

// DefaultOuterRetryConfig returns 3 attempts with 1s, 2s delays, retrying
// request failures only.
func DefaultOuterRetryConfig() OuterRetryConfig {
	return OuterRetryConfig{
		Attempts: DefaultOuterAttempts,
		Delay:    DefaultOuterDelay,
		Backoff:  DefaultOuterBackoff,
		RetryIf:  IsRequestFailure,
	}
}

// RetryingClient decorates a Subscribers implementation with a uniform
// retry policy. It treats each operation as opaque and re-runs it whole.
type RetryingClient struct {
	next   Subscribers
	cfg    OuterRetryConfig
	sleep  Sleeper
	logger *slog.Logger
}

var _ Subscribers = (*RetryingClient)(nil)

// NewRetryingClient wraps next with cfg.
func NewRetryingClient(next Subscribers, cfg OuterRetryConfig) *RetryingClient {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 1
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = IsRequestFailure
	}
	logger := slog.Default()
	if c, ok := next.(*Client); ok {
		logger = c.logger()
	}
	return &RetryingClient{next: next, cfg: cfg, sleep: sleepWithContext, logger: logger}
}

// WithSleeper replaces the wait function, for tests.
func (r *RetryingClient) WithSleeper(s Sleeper) *RetryingClient {
	r.sleep = s
	return r
}

// WithLogger replaces the logger used to report retries.
func (r *RetryingClient) WithLogger(l *slog.Logger) *RetryingClient {
	r.logger = l
	return r
}

// retry runs fn up to cfg.Attempts times.
func retry[T any](ctx context.Context, r *RetryingClient, op string, fn func(context.Context) (T, error)) (T, error) {
	delay := r.cfg.Delay
	for attempt := 1; ; attempt++ {
		out, err := fn(ctx)
		if err == nil || attempt >= r.cfg.Attempts || !r.cfg.RetryIf(err) || ctx.Err() != nil {
			return out, err
		}
		r.logger.Warn("operation failed, retrying", "op", op, "attempt", attempt, "delay", delay, "error", err)
		if werr := r.sleep(ctx, delay); werr != nil {
			return out, err
		}
		delay = time.Duration(float64(delay) * r.cfg.Backoff)
	}
}

func (r *RetryingClient) FetchSubscriber(ctx context.Context, id string) (*Response, error) {
	return retry(ctx, r, "fetch_subscriber", func(ctx context.Context) (*Response, error) {
		return r.next.FetchSubscriber(ctx, id)
	})
}

func (r *RetryingClient) UnsubscribeEmail(ctx context.Context, email string) (*Response, error) {
	return retry(ctx, r, "unsubscribe_email", func(ctx context.Context) (*Response, error) {
		return r.next.UnsubscribeEmail(ctx, email)
	})
}

func (r *RetryingClient) AddSubscriberTag(ctx context.Context, email, tag string) (*Response, error) {
	return retry(ctx, r, "add_subscriber_tag", func(ctx context.Context) (*Response, error) {
		return r.next.AddSubscriberTag(ctx, email, tag)
	})
}

func (r *RetryingClient) RemoveSubscriberTag(ctx context.Context, email, tag string) (*Response, error) {
	return retry(ctx, r, "remove_subscriber_tag", func(ctx context.Context) (*Response, error) {
		return r.next.RemoveSubscriberTag(ctx, email, tag)
	})
}

// UpdateSubscriberTagsBatch re-runs the whole batch on failure, including
// partitions that were already accepted. Drip applies tag updates
// idempotently, so resending them is harmless.
func (r *RetryingClient) UpdateSubscriberTagsBatch(ctx context.Context, updates []TagUpdate) (*BatchResult, error) {
	return retry(ctx, r, "update_subscriber_tags_batch", func(ctx context.Context) (*BatchResult, error) {
		return r.next.UpdateSubscriberTagsBatch(ctx, updates)
	})
}
