package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/springboard/drip-cli/internal/api"
	"github.com/springboard/drip-cli/internal/dryrun"
	"github.com/springboard/drip-cli/internal/iocontext"
	"github.com/springboard/drip-cli/internal/validation"
)

func newSubscribersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscribers",
		Aliases: []string{"subscriber", "sub"},
		Short:   "Look up and unsubscribe subscribers",
	}

	cmd.AddCommand(newSubscribersGetCmd())
	cmd.AddCommand(newSubscribersUnsubscribeCmd())

	return cmd
}

func newSubscribersGetCmd() *cobra.Command {
	var (
		concurrency int
		progress    bool
	)

	cmd := &cobra.Command{
		Use:   "get <id-or-email>...",
		Short: "Fetch subscribers by id or email",
		Long: strings.TrimSpace(`
Fetch one or more subscribers. Each argument is a Drip subscriber id or an
email address. Several lookups run concurrently; a failed lookup does not stop
the others, but the command exits non-zero if any failed.
`),
		Example: strings.TrimSpace(`
  # Fetch one subscriber
  drip subscribers get jane@example.com

  # Fetch several and keep only their tags
  drip subscribers get 123 jane@example.com --jq '.[].subscribers[0].tags'
`),
		Args: cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 {
				return fmt.Errorf("--concurrency must be at least 1")
			}
			ids := make([]string, 0, len(args))
			for _, arg := range args {
				arg = strings.TrimSpace(arg)
				if arg == "" {
					return fmt.Errorf("subscriber id or email must not be empty")
				}
				ids = append(ids, arg)
			}

			_, subs, err := getClient(cmd.Context())
			if err != nil {
				return err
			}

			ioStreams := iocontext.GetIO(cmd.Context())
			results := runBulkOperation(cmd.Context(), ids, int64(concurrency), progress, ioStreams.ErrOut,
				func(ctx context.Context, id string) (*api.Response, error) {
					return subs.FetchSubscriber(ctx, id)
				})

			if isJSON(cmd) {
				if err := printJSON(cmd, subscriberPayload(results)); err != nil {
					return err
				}
			} else {
				writeSubscriberTable(cmd, results)
			}

			if _, failed := countResults(results); failed > 0 {
				if failed == 1 || len(results) == 1 {
					return firstError(results)
				}
				return fmt.Errorf("%d of %d lookups failed: %w", failed, len(results), firstError(results))
			}
			return nil
		}),
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", DefaultConcurrency, "Maximum concurrent lookups")
	cmd.Flags().BoolVar(&progress, "progress", false, "Report progress on stderr")

	return cmd
}

// subscriberPayload is the raw response body for a single successful lookup,
// or one entry per argument otherwise.
func subscriberPayload(results []BulkResult) any {
	if len(results) == 1 && results[0].Success {
		return responseBody(results[0].Data)
	}
	out := make([]map[string]any, 0, len(results))
	for _, r := range results {
		entry := map[string]any{"id": r.ID, "success": r.Success}
		if r.Success {
			entry["response"] = responseBody(r.Data)
		} else if r.Error != nil {
			entry["error"] = api.StructuredErrorFromError(r.Error)
		}
		out = append(out, entry)
	}
	return out
}

func responseBody(data any) any {
	resp, ok := data.(*api.Response)
	if !ok || resp == nil {
		return nil
	}
	if resp.Decoded() {
		return resp.Body
	}
	if resp.DecodeErr == nil && len(resp.Raw) > 0 {
		var v any
		if err := json.Unmarshal(resp.Raw, &v); err == nil {
			return v
		}
	}
	return map[string]any{"raw": string(resp.Raw)}
}

func writeSubscriberTable(cmd *cobra.Command, results []BulkResult) {
	f := formatter(cmd)
	f.StartTable([]string{"QUERY", "ID", "EMAIL", "STATUS", "TAGS"})
	for _, r := range results {
		if !r.Success {
			f.Row(r.ID, "-", "-", "error", r.Error.Error())
			continue
		}
		resp, _ := r.Data.(*api.Response)
		found := resp.Subscribers()
		if len(found) == 0 {
			f.Row(r.ID, "-", "-", "-", "")
			continue
		}
		for _, s := range found {
			f.Row(r.ID, stringField(s, "id"), stringField(s, "email"), stringField(s, "status"), strings.Join(stringList(s["tags"]), ","))
		}
	}
	_ = f.EndTable()
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, fmt.Sprint(item))
	}
	return out
}

func newSubscribersUnsubscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unsubscribe <email>",
		Short: "Unsubscribe an email from all mailings",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			email, err := requireEmail(args[0])
			if err != nil {
				return err
			}

			client, subs, err := getClient(cmd.Context())
			if err != nil {
				return err
			}

			if dryrun.IsEnabled(cmd.Context()) {
				return writePreview(cmd, &dryrun.Preview{
					Operation: "unsubscribe " + email + " from all mailings",
					Method:    http.MethodPost,
					URL:       client.Paths().Unsubscribe(email),
				})
			}

			resp, err := subs.UnsubscribeEmail(cmd.Context(), email)
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, responseBody(resp))
			}
			printText(cmd, "Unsubscribed %s", email)
			return nil
		}),
	}

	return cmd
}

// requireEmail trims s and checks it looks like an address.
func requireEmail(s string) (string, error) {
	email := strings.TrimSpace(s)
	if err := validation.Email(email); err != nil {
		if errors.Is(err, validation.ErrEmptyEmail) {
			return "", err
		}
		return "", fmt.Errorf("%w: must be a valid email address", err)
	}
	return email, nil
}

// writePreview prints a single dry-run preview as JSON or text.
func writePreview(cmd *cobra.Command, p *dryrun.Preview) error {
	if isJSON(cmd) {
		return printJSON(cmd, map[string]any{"dry_run": true, "requests": []*dryrun.Preview{p}})
	}
	dryrun.WriteAll(iocontext.GetIO(cmd.Context()).Out, []*dryrun.Preview{p})
	return nil
}
