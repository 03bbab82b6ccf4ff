package api

import "context"

// Dispatcher executes one logical request and classifies its outcome.
// *Client is the production implementation; the operation helpers depend
// only on this interface so they can be exercised against a recorder.
type Dispatcher interface {
	Dispatch(ctx context.Context, method, url string, payload map[string]any) (*Response, error)
}

// Subscribers lists every subscriber operation the client exposes.
//
// Both *Client and *RetryingClient implement it, so callers pick the retry
// behavior at construction time and program against this interface:
//
//	var subs api.Subscribers = client
//	if retry {
//	    subs = api.NewRetryingClient(client, api.DefaultOuterRetryConfig())
//	}
type Subscribers interface {
	FetchSubscriber(ctx context.Context, id string) (*Response, error)
	UnsubscribeEmail(ctx context.Context, email string) (*Response, error)
	AddSubscriberTag(ctx context.Context, email, tag string) (*Response, error)
	RemoveSubscriberTag(ctx context.Context, email, tag string) (*Response, error)
	UpdateSubscriberTagsBatch(ctx context.Context, updates []TagUpdate) (*BatchResult, error)
}
