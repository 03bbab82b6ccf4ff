package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/springboard/drip-cli/internal/api"
	"github.com/springboard/drip-cli/internal/dryrun"
	"github.com/springboard/drip-cli/internal/iocontext"
	"github.com/springboard/drip-cli/internal/records"
	"github.com/springboard/drip-cli/internal/validation"
)

func newTagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tags",
		Aliases: []string{"tag"},
		Short:   "Apply and remove subscriber tags",
	}

	cmd.AddCommand(newTagsAddCmd())
	cmd.AddCommand(newTagsRemoveCmd())
	cmd.AddCommand(newTagsBatchCmd())

	return cmd
}

func newTagsAddCmd() *cobra.Command {
	return newTagChangeCmd("add", "Apply a tag to a subscriber", true)
}

func newTagsRemoveCmd() *cobra.Command {
	return newTagChangeCmd("remove", "Remove a tag from a subscriber", false)
}

// newTagChangeCmd builds the single-subscriber add and remove commands,
// which differ only in which side of the update carries the tag.
func newTagChangeCmd(use, short string, add bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <email> <tag>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			email, err := requireEmail(args[0])
			if err != nil {
				return err
			}
			tag := strings.TrimSpace(args[1])
			if err := validation.Tag(tag); err != nil {
				return err
			}

			client, subs, err := getClient(cmd.Context())
			if err != nil {
				return err
			}

			if dryrun.IsEnabled(cmd.Context()) {
				verb := "apply tag %q to %s"
				key := "tags"
				if !add {
					verb = "remove tag %q from %s"
					key = "remove_tags"
				}
				return writePreview(cmd, &dryrun.Preview{
					Operation: fmt.Sprintf(verb, tag, email),
					Method:    http.MethodPost,
					URL:       client.Paths().UpdateSubscriber(),
					Details:   map[string]any{"email": email, key: tag},
				})
			}

			var resp *api.Response
			if add {
				resp, err = subs.AddSubscriberTag(cmd.Context(), email, tag)
			} else {
				resp, err = subs.RemoveSubscriberTag(cmd.Context(), email, tag)
			}
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return printJSON(cmd, responseBody(resp))
			}
			if add {
				printText(cmd, "Tagged %s with %q", email, tag)
			} else {
				printText(cmd, "Removed tag %q from %s", tag, email)
			}
			return nil
		}),
	}

	return cmd
}

func newTagsBatchCmd() *cobra.Command {
	var (
		file   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Apply tag changes to many subscribers",
		Long: strings.TrimSpace(`
Read tag changes from a file (or stdin) and send them in batches of at most
1000 subscribers.

CSV input has the columns email, tag, remove_tag; a header row naming them is
optional. Repeated emails are merged into one record. JSONL input has one
object per line:

  {"email": "jane@example.com", "tags": ["vip"], "remove_tags": ["trial"]}

Batches are sent in order. If one fails, the batches after it are not sent
and the command reports how many were accepted.
`),
		Example: strings.TrimSpace(`
  # Preview the batches a CSV file would produce
  drip tags batch --file changes.csv --dry-run

  # Stream JSONL from another program
  export-tags | drip tags batch --format jsonl
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			recordFormat, err := records.ParseFormat(format, file)
			if err != nil {
				return err
			}

			in, err := iocontext.OpenInput(cmd.Context(), file)
			if err != nil {
				return err
			}
			defer func() { _ = in.Close() }()

			updates, err := records.Read(in, recordFormat)
			if err != nil {
				return err
			}

			client, subs, err := getClient(cmd.Context())
			if err != nil {
				return err
			}

			if dryrun.IsEnabled(cmd.Context()) {
				previews := dryrun.BatchPreview(client.Paths(), updates)
				if isJSON(cmd) {
					return printJSON(cmd, map[string]any{"dry_run": true, "requests": previews})
				}
				dryrun.WriteAll(iocontext.GetIO(cmd.Context()).Out, previews)
				return nil
			}

			result, err := subs.UpdateSubscriberTagsBatch(cmd.Context(), updates)
			if result == nil {
				result = &api.BatchResult{}
			}
			total := len(api.Partition(updates, api.MaxBatchSize))

			if isJSON(cmd) {
				if perr := printJSON(cmd, batchSummary(result, total, len(updates))); perr != nil && err == nil {
					return perr
				}
			} else if err == nil || result.Batches > 0 {
				printText(cmd, "Sent %d of %d batches (%d of %d subscribers)", result.Batches, total, result.Subscribers, len(updates))
			}
			return err
		}),
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "Input file, or - for stdin")
	cmd.Flags().StringVar(&format, "format", "", "Input format: csv|jsonl (default: from file extension, else csv)")

	return cmd
}

func batchSummary(result *api.BatchResult, totalBatches, totalSubscribers int) map[string]any {
	return map[string]any{
		"batches_sent":      result.Batches,
		"batches_total":     totalBatches,
		"subscribers_sent":  result.Subscribers,
		"subscribers_total": totalSubscribers,
		"complete":          result.Batches == totalBatches,
	}
}
