package api

import "fmt"

// PathBuilder renders request URLs for one account. Segments are inserted
// verbatim; callers are responsible for any escaping.
type PathBuilder struct {
	Endpoint  string
	AccountID string
}

// FetchSubscriber returns {endpoint}{account}/subscribers/{id}.
func (p PathBuilder) FetchSubscriber(id string) string {
	return fmt.Sprintf("%s%s/subscribers/%s", p.Endpoint, p.AccountID, id)
}

// Unsubscribe returns {endpoint}{account}/subscribers/{email}/unsubscribe.
func (p PathBuilder) Unsubscribe(email string) string {
	return fmt.Sprintf("%s%s/subscribers/%s/unsubscribe", p.Endpoint, p.AccountID, email)
}

// UpdateSubscriber returns {endpoint}{account}/subscribers.
func (p PathBuilder) UpdateSubscriber() string {
	return fmt.Sprintf("%s%s/subscribers", p.Endpoint, p.AccountID)
}

// UpdateSubscriberBatch returns {endpoint}{account}/subscribers/batches.
func (p PathBuilder) UpdateSubscriberBatch() string {
	return fmt.Sprintf("%s%s/subscribers/batches", p.Endpoint, p.AccountID)
}
