package api

import (
	"context"
	"log/slog"
	"net/http"
)

// MaxBatchSize is the largest number of subscribers Drip accepts in one
// batch request.
const MaxBatchSize = 1000

// TagUpdate is one subscriber's tag changes.
type TagUpdate struct {
	Email      string   `json:"email"`
	Tags       []string `json:"tags,omitempty"`
	RemoveTags []string `json:"remove_tags,omitempty"`
}

// wire projects the update into its request shape; tags and remove_tags are
// present only when non-empty.
func (u TagUpdate) wire() map[string]any {
	out := map[string]any{"email": u.Email}
	if len(u.Tags) > 0 {
		out["tags"] = u.Tags
	}
	if len(u.RemoveTags) > 0 {
		out["remove_tags"] = u.RemoveTags
	}
	return out
}

// BatchResult summarizes a batch update.
type BatchResult struct {
	Batches     int `json:"batches"`
	Subscribers int `json:"subscribers"`
}

// Partition splits items into contiguous chunks of at most size elements,
// preserving order. It returns nil for empty input. A non-positive size
// selects MaxBatchSize.
func Partition[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = MaxBatchSize
	}
	if len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end:end])
	}
	return out
}

// BatchPayload builds the request body for one partition.
func BatchPayload(part []TagUpdate) map[string]any {
	subscribers := make([]map[string]any, len(part))
	for i, u := range part {
		subscribers[i] = u.wire()
	}
	return map[string]any{
		"batches": []map[string]any{
			{"subscribers": subscribers},
		},
	}
}

func updateSubscriberBatch(ctx context.Context, d Dispatcher, p PathBuilder, updates []TagUpdate, logger *slog.Logger) (*BatchResult, error) {
	result := &BatchResult{}
	url := p.UpdateSubscriberBatch()
	partitions := Partition(updates, MaxBatchSize)
	for i, part := range partitions {
		if _, err := d.Dispatch(ctx, http.MethodPost, url, BatchPayload(part)); err != nil {
			logger.Error("batch update failed", "batch", i+1, "of", len(partitions), "sent", result.Subscribers, "error", err)
			return result, err
		}
		result.Batches++
		result.Subscribers += len(part)
		logger.Debug("batch sent", "batch", i+1, "of", len(partitions), "size", len(part))
	}
	return result, nil
}
