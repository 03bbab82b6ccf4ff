package api

import (
	"context"
	"net/http"
)

// FetchSubscriber retrieves a subscriber by numeric id or email.
func (c *Client) FetchSubscriber(ctx context.Context, id string) (*Response, error) {
	return fetchSubscriber(ctx, c, c.Paths(), id)
}

func fetchSubscriber(ctx context.Context, d Dispatcher, p PathBuilder, id string) (*Response, error) {
	return d.Dispatch(ctx, http.MethodGet, p.FetchSubscriber(id), nil)
}

// UnsubscribeEmail unsubscribes an email from all mailings.
func (c *Client) UnsubscribeEmail(ctx context.Context, email string) (*Response, error) {
	return unsubscribeEmail(ctx, c, c.Paths(), email)
}

func unsubscribeEmail(ctx context.Context, d Dispatcher, p PathBuilder, email string) (*Response, error) {
	return d.Dispatch(ctx, http.MethodPost, p.Unsubscribe(email), nil)
}

// AddSubscriberTag applies tag to email. Drip creates the subscriber if it
// does not exist yet.
func (c *Client) AddSubscriberTag(ctx context.Context, email, tag string) (*Response, error) {
	return updateSubscriber(ctx, c, c.Paths(), TagUpdate{Email: email, Tags: []string{tag}})
}

// RemoveSubscriberTag removes tag from email.
func (c *Client) RemoveSubscriberTag(ctx context.Context, email, tag string) (*Response, error) {
	return updateSubscriber(ctx, c, c.Paths(), TagUpdate{Email: email, RemoveTags: []string{tag}})
}

func updateSubscriber(ctx context.Context, d Dispatcher, p PathBuilder, update TagUpdate) (*Response, error) {
	body := map[string]any{
		"subscribers": []map[string]any{update.wire()},
	}
	return d.Dispatch(ctx, http.MethodPost, p.UpdateSubscriber(), body)
}

// UpdateSubscriberTagsBatch sends updates in partitions of at most MaxBatchSize.
func (c *Client) UpdateSubscriberTagsBatch(ctx context.Context, updates []TagUpdate) (*BatchResult, error) {
	return updateSubscriberBatch(ctx, c, c.Paths(), updates, c.logger())
}
