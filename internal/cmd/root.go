package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/springboard/drip-cli/internal/api"
	"github.com/springboard/drip-cli/internal/debug"
	"github.com/springboard/drip-cli/internal/dryrun"
	"github.com/springboard/drip-cli/internal/iocontext"
	"github.com/springboard/drip-cli/internal/outfmt"
)

// rootFlags holds global CLI flags
type rootFlags struct {
	Output                string
	JSON                  bool
	JQ                    string
	Debug                 bool
	DryRun                bool
	Timeout               time.Duration
	Profile               string
	Endpoint              string
	MaxRateLimitRetries   int
	MaxUnavailableRetries int
	RateLimitDelay        time.Duration
	UnavailableDelay      time.Duration
	ThrottleRPS           int
	NoRetry               bool

	MaxRateLimitRetriesSet   bool
	MaxUnavailableRetriesSet bool
	RateLimitDelaySet        bool
	UnavailableDelaySet      bool
}

// flags holds the global command flags. This is package-level mutable state
// that MUST be reset at the start of every Execute() call. Code that reads
// flags outside of a command's RunE sees values from the previous run.
var flags rootFlags

func defaultFlags() rootFlags {
	return rootFlags{
		Output:  defaultOutput(),
		Timeout: api.DefaultTimeout,
	}
}

func defaultOutput() string {
	if value := strings.TrimSpace(os.Getenv("DRIP_OUTPUT")); value != "" {
		return value
	}
	return "text"
}

var userConfigDir = os.UserConfigDir

// loadDotEnv loads ~/.config/drip-cli/.env and ./.env when present. Variables
// already set in the environment are not overwritten.
func loadDotEnv() {
	var paths []string
	if dir, err := userConfigDir(); err == nil && dir != "" {
		paths = append(paths, filepath.Join(dir, "drip-cli", ".env"))
	}
	paths = append(paths, ".env")
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// Execute runs the root command
func Execute(ctx context.Context, args []string) error {
	// Runs before the flag reset so DRIP_OUTPUT and friends can come from .env.
	loadDotEnv()
	flags = defaultFlags()

	root := newRootCmd()
	root.SetContext(ctx)
	root.SetArgs(args)

	targetCmd, err := root.ExecuteC()
	if err != nil {
		if !errors.Is(err, errAlreadyHandled) {
			errOut := iocontext.GetIO(ctx).ErrOut
			_, _ = fmt.Fprintln(errOut, enhanceUnknownError(err, root, targetCmd))
		}
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "drip",
		Short: "CLI for the Drip email marketing API",
		Long: strings.TrimSpace(`
Manage Drip subscribers and tags from the command line.

Requests that Drip rate limits (429) or reports as unavailable (503) are
retried after a fixed wait; whole operations are retried up to three times
unless --no-retry is given.`),
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true, // enhanceUnknownError provides suggestions
		PersistentPreRunE:  setupContext,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.Output, "output", "o", flags.Output, "Output format: text|json|jsonl (env DRIP_OUTPUT)")
	pf.BoolVarP(&flags.JSON, "json", "j", false, "Shorthand for --output json")
	pf.StringVar(&flags.JQ, "jq", "", "jq expression to filter JSON output")
	pf.BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	pf.BoolVar(&flags.DryRun, "dry-run", false, "Preview changes without executing")
	pf.DurationVar(&flags.Timeout, "timeout", flags.Timeout, "HTTP request timeout (e.g., 30s, 2m)")
	pf.StringVar(&flags.Profile, "profile", "", "Credential profile to use (env DRIP_PROFILE)")
	pf.StringVar(&flags.Endpoint, "endpoint", "", "API endpoint override (env DRIP_ENDPOINT)")
	pf.IntVar(&flags.MaxRateLimitRetries, "max-rate-limit-retries", 0, "Max retries for 429 responses; -1 retries without limit (overrides env)")
	pf.IntVar(&flags.MaxUnavailableRetries, "max-unavailable-retries", 0, "Max retries for 503 responses; -1 retries without limit (overrides env)")
	pf.DurationVar(&flags.RateLimitDelay, "rate-limit-delay", 0, "Wait before retrying a 429 (overrides env)")
	pf.DurationVar(&flags.UnavailableDelay, "unavailable-delay", 0, "Wait before retrying a 503 (overrides env)")
	pf.IntVar(&flags.ThrottleRPS, "throttle-rps", 0, "Limit outbound requests per second (0 disables)")
	pf.BoolVar(&flags.NoRetry, "no-retry", false, "Disable whole-operation retries")

	root.AddCommand(newAuthCmd())
	root.AddCommand(newSubscribersCmd())
	root.AddCommand(newTagsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// setupContext validates global flags and attaches output mode, IO streams,
// logger, and dry-run state to the command context.
func setupContext(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if flags.JSON {
		if cmd.Flags().Changed("output") && flags.Output != "json" {
			return fmt.Errorf("--json conflicts with --output %s", flags.Output)
		}
		flags.Output = "json"
	}
	if flags.JQ != "" && flags.Output == "text" {
		if cmd.Flags().Changed("output") {
			return fmt.Errorf("--jq requires --output json or jsonl")
		}
		flags.Output = "json"
	}
	mode, err := outfmt.Parse(flags.Output)
	if err != nil {
		return err
	}
	ctx = outfmt.WithMode(ctx, mode)
	if flags.JQ != "" {
		ctx = outfmt.WithQuery(ctx, flags.JQ)
	}

	flags.MaxRateLimitRetriesSet = cmd.Flags().Changed("max-rate-limit-retries")
	flags.MaxUnavailableRetriesSet = cmd.Flags().Changed("max-unavailable-retries")
	flags.RateLimitDelaySet = cmd.Flags().Changed("rate-limit-delay")
	flags.UnavailableDelaySet = cmd.Flags().Changed("unavailable-delay")

	if flags.RateLimitDelaySet && flags.RateLimitDelay < 0 {
		return fmt.Errorf("--rate-limit-delay must be >= 0")
	}
	if flags.UnavailableDelaySet && flags.UnavailableDelay < 0 {
		return fmt.Errorf("--unavailable-delay must be >= 0")
	}
	if flags.ThrottleRPS < 0 {
		return fmt.Errorf("--throttle-rps must be >= 0")
	}
	if flags.Timeout < 0 {
		return fmt.Errorf("--timeout must be >= 0")
	}

	ioStreams := iocontext.GetIO(ctx)
	ctx = iocontext.WithIO(ctx, ioStreams)
	cmd.SetOut(ioStreams.Out)
	cmd.SetErr(ioStreams.ErrOut)

	ctx = debug.WithDebug(ctx, flags.Debug)
	ctx = debug.WithLogger(ctx, debug.NewLogger(ioStreams.ErrOut, flags.Debug))
	ctx = dryrun.WithDryRun(ctx, flags.DryRun)

	cmd.SetContext(ctx)
	return nil
}

// enhanceUnknownError adds "did you mean?" suggestions to unknown command errors.
func enhanceUnknownError(err error, root, target *cobra.Command) string {
	msg := err.Error()
	if strings.HasPrefix(msg, "unknown flag: ") && target != nil {
		var names []string
		target.Flags().VisitAll(func(f *pflag.Flag) {
			names = append(names, "--"+f.Name)
		})
		target.InheritedFlags().VisitAll(func(f *pflag.Flag) {
			names = append(names, "--"+f.Name)
		})
		if suggestion := suggestFlag(strings.TrimPrefix(msg, "unknown flag: "), names); suggestion != "" {
			return fmt.Sprintf("Error: %s\n\nDid you mean %s?", msg, suggestion)
		}
		return "Error: " + msg
	}
	if !strings.Contains(msg, "unknown command") {
		return "Error: " + msg
	}
	unknown := extractQuoted(msg)
	parent := root
	if target != nil {
		parent = target
	}
	var names []string
	for _, c := range parent.Commands() {
		if c.IsAvailableCommand() {
			names = append(names, c.Name())
			names = append(names, c.Aliases...)
		}
	}
	if suggestion := suggestCommand(unknown, names); suggestion != "" {
		return fmt.Sprintf("Error: %s\n\nDid you mean %q?", msg, suggestion)
	}
	return "Error: " + msg
}

func extractQuoted(s string) string {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return ""
	}
	return s[start+1 : start+1+end]
}
