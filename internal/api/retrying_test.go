package api

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakySubscribers fails the first n calls of every operation with err.
type flakySubscribers struct {
	failures int
	err      error
	calls    int
}

func (f *flakySubscribers) next() error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func (f *flakySubscribers) FetchSubscriber(context.Context, string) (*Response, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return &Response{StatusCode: 200, Body: map[string]any{"ok": true}}, nil
}

func (f *flakySubscribers) UnsubscribeEmail(context.Context, string) (*Response, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return &Response{StatusCode: 200, Body: map[string]any{}}, nil
}

func (f *flakySubscribers) AddSubscriberTag(context.Context, string, string) (*Response, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return &Response{StatusCode: 201, Body: map[string]any{}}, nil
}

func (f *flakySubscribers) RemoveSubscriberTag(context.Context, string, string) (*Response, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return &Response{StatusCode: 201, Body: map[string]any{}}, nil
}

func (f *flakySubscribers) UpdateSubscriberTagsBatch(_ context.Context, updates []TagUpdate) (*BatchResult, error) {
	if err := f.next(); err != nil {
		return &BatchResult{}, err
	}
	return &BatchResult{Batches: 1, Subscribers: len(updates)}, nil
}

func newTestRetrying(next Subscribers) (*RetryingClient, *fakeSleeper) {
	sleeper := &fakeSleeper{}
	r := NewRetryingClient(next, DefaultOuterRetryConfig()).
		WithSleeper(sleeper.Sleep).
		WithLogger(quietLogger())
	return r, sleeper
}

func equalDelays(a, b []time.Duration) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRetryingClient_SucceedsOnThirdAttempt(t *testing.T) {
	fake := &flakySubscribers{failures: 2, err: &APIError{StatusCode: 500}}
	r, sleeper := newTestRetrying(fake)

	resp, err := r.FetchSubscriber(context.Background(), "42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Body["ok"] != true {
		t.Errorf("unexpected response: %+v", resp)
	}
	if fake.calls != 3 {
		t.Errorf("calls = %d, want 3", fake.calls)
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; !equalDelays(sleeper.Delays(), want) {
		t.Errorf("delays = %v, want %v", sleeper.Delays(), want)
	}
}

func TestRetryingClient_ExhaustsAttempts(t *testing.T) {
	hard := &APIError{StatusCode: 422}
	fake := &flakySubscribers{failures: 10, err: hard}
	r, sleeper := newTestRetrying(fake)

	_, err := r.AddSubscriberTag(context.Background(), "a@x.com", "vip")
	if !errors.Is(err, hard) {
		t.Fatalf("expected last error, got %v", err)
	}
	if fake.calls != DefaultOuterAttempts {
		t.Errorf("calls = %d, want %d", fake.calls, DefaultOuterAttempts)
	}
	if len(sleeper.Delays()) != DefaultOuterAttempts-1 {
		t.Errorf("waits = %d, want %d", len(sleeper.Delays()), DefaultOuterAttempts-1)
	}
}

func TestRetryingClient_DoesNotRetryLocalErrors(t *testing.T) {
	local := errors.New("failed to marshal request body")
	fake := &flakySubscribers{failures: 10, err: local}
	r, sleeper := newTestRetrying(fake)

	_, err := r.UnsubscribeEmail(context.Background(), "a@x.com")
	if !errors.Is(err, local) {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.calls != 1 || len(sleeper.Delays()) != 0 {
		t.Errorf("calls = %d, waits = %d; want 1, 0", fake.calls, len(sleeper.Delays()))
	}
}

func TestRetryingClient_RetriesEveryRequestFailureKind(t *testing.T) {
	errs := map[string]error{
		"api":        &APIError{StatusCode: 400},
		"exhausted":  &RetryExhaustedError{StatusCode: 429},
		"connection": &ConnectionError{Err: errors.New("reset")},
	}
	for name, failure := range errs {
		t.Run(name, func(t *testing.T) {
			fake := &flakySubscribers{failures: 1, err: failure}
			r, _ := newTestRetrying(fake)
			if _, err := r.RemoveSubscriberTag(context.Background(), "a@x.com", "vip"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fake.calls != 2 {
				t.Errorf("calls = %d, want 2", fake.calls)
			}
		})
	}
}

func TestRetryingClient_StopsWhenContextEnds(t *testing.T) {
	fake := &flakySubscribers{failures: 10, err: &APIError{StatusCode: 500}}
	r, _ := newTestRetrying(fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.FetchSubscriber(ctx, "42"); err == nil {
		t.Fatal("expected error")
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1", fake.calls)
	}
}

func TestRetryingClient_BatchIsRetriedWhole(t *testing.T) {
	fake := &flakySubscribers{failures: 1, err: &ConnectionError{Err: errors.New("reset")}}
	r, sleeper := newTestRetrying(fake)

	result, err := r.UpdateSubscriberTagsBatch(context.Background(), makeUpdates(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Subscribers != 3 || fake.calls != 2 {
		t.Errorf("result = %+v, calls = %d", result, fake.calls)
	}
	if want := []time.Duration{time.Second}; !equalDelays(sleeper.Delays(), want) {
		t.Errorf("delays = %v, want %v", sleeper.Delays(), want)
	}
}

func TestNewRetryingClient_NormalizesConfig(t *testing.T) {
	r := NewRetryingClient(&flakySubscribers{}, OuterRetryConfig{})
	if r.cfg.Attempts != 1 || r.cfg.Backoff != 1 || r.cfg.RetryIf == nil {
		t.Errorf("cfg = %+v", r.cfg)
	}
}

func TestNewRetryingClient_InheritsClientLogger(t *testing.T) {
	logger := quietLogger()
	c, err := New("", "tok", "acct", WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	if r := NewRetryingClient(c, DefaultOuterRetryConfig()); r.logger != logger {
		t.Error("expected the client's logger")
	}
}
