// Package dryrun previews mutating commands without sending them.
package dryrun

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/springboard/drip-cli/internal/api"
)

type contextKey string

const dryRunKey contextKey = "dry_run_enabled"

// WithDryRun returns a context with dry-run mode enabled/disabled.
func WithDryRun(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, dryRunKey, enabled)
}

// IsEnabled returns true if dry-run mode is enabled.
func IsEnabled(ctx context.Context) bool {
	if v, ok := ctx.Value(dryRunKey).(bool); ok {
		return v
	}
	return false
}

// Preview describes a request that would have been sent.
type Preview struct {
	Operation string         `json:"operation"`
	Method    string         `json:"method"`
	URL       string         `json:"url"`
	Details   map[string]any `json:"details,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
}

// Write outputs the preview to the writer. Details are printed in key order.
func (p *Preview) Write(w io.Writer) {
	rule := strings.Repeat("─", 39)
	_, _ = fmt.Fprintf(w, "[DRY-RUN] Would %s\n%s\n", p.Operation, rule)
	_, _ = fmt.Fprintf(w, "  %s %s\n", p.Method, p.URL)

	keys := make([]string, 0, len(p.Details))
	for k := range p.Details {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "  %s: %v\n", k, p.Details[k])
	}

	if len(p.Warnings) > 0 {
		_, _ = fmt.Fprintln(w, "Warnings:")
		for _, warning := range p.Warnings {
			_, _ = fmt.Fprintf(w, "  ! %s\n", warning)
		}
	}
	_, _ = fmt.Fprintln(w, rule)
}

// BatchPreview returns one preview per partition that a batch tag update
// would send, in send order.
func BatchPreview(paths api.PathBuilder, updates []api.TagUpdate) []*Preview {
	parts := api.Partition(updates, api.MaxBatchSize)
	out := make([]*Preview, 0, len(parts))
	for i, part := range parts {
		var adds, removes int
		for _, u := range part {
			adds += len(u.Tags)
			removes += len(u.RemoveTags)
		}
		p := &Preview{
			Operation: fmt.Sprintf("send batch %d of %d", i+1, len(parts)),
			Method:    "POST",
			URL:       paths.UpdateSubscriberBatch(),
			Details: map[string]any{
				"subscribers":  len(part),
				"first":        part[0].Email,
				"last":         part[len(part)-1].Email,
				"tags_added":   adds,
				"tags_removed": removes,
			},
		}
		if adds == 0 && removes == 0 {
			p.Warnings = append(p.Warnings, "no tag changes in this batch")
		}
		out = append(out, p)
	}
	return out
}

// WriteAll writes each preview followed by a closing notice.
func WriteAll(w io.Writer, previews []*Preview) {
	for _, p := range previews {
		p.Write(w)
	}
	_, _ = fmt.Fprintln(w, "No changes made (dry-run mode)")
}
