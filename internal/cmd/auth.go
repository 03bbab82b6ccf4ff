package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/springboard/drip-cli/internal/api"
	"github.com/springboard/drip-cli/internal/config"
	"github.com/springboard/drip-cli/internal/validation"
)

// newAuthCmd returns the auth command with subcommands
func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication credentials",
		Long:  "Configure and manage Drip API credentials stored in your OS keychain.",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthProfilesCmd())
	cmd.AddCommand(newAuthSwitchCmd())

	return cmd
}

// newAuthLoginCmd creates the auth login command
func newAuthLoginCmd() *cobra.Command {
	var (
		token     string
		accountID string
		envFile   string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save API credentials",
		Long: strings.TrimSpace(`
Save Drip credentials to your OS keychain.

You'll need:
- API Token: from Settings > User Settings in Drip
- Account ID: the number in your Drip dashboard URL

Use the global --profile flag to keep several accounts side by side and
--endpoint to point at a non-default API base URL.
`),
		Example: strings.TrimSpace(`
  # Save credentials for the default profile
  drip auth login --token YOUR_API_TOKEN --account-id 9999999

  # Save to a named profile
  drip auth login --token YOUR_API_TOKEN --account-id 9999999 --profile staging

  # Load DRIP_API_TOKEN, DRIP_ACCOUNT_ID and DRIP_ENDPOINT from a .env file
  drip auth login --env-file .env
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			endpoint := flags.Endpoint
			profile := flags.Profile

			if envFile != "" {
				envVars, err := godotenv.Read(envFile)
				if err != nil {
					return fmt.Errorf("failed to read env file %q: %w", envFile, err)
				}
				if token == "" {
					token = strings.TrimSpace(envVars[config.EnvAPIToken])
				}
				if accountID == "" {
					accountID = strings.TrimSpace(envVars[config.EnvAccountID])
				}
				if endpoint == "" {
					endpoint = strings.TrimSpace(envVars[config.EnvEndpoint])
				}
				if profile == "" {
					profile = strings.TrimSpace(envVars[config.EnvProfile])
				}
			}

			token = strings.TrimSpace(token)
			accountID = strings.TrimSpace(accountID)
			if token == "" {
				return fmt.Errorf("--token is required")
			}
			if accountID == "" {
				return fmt.Errorf("--account-id is required")
			}
			if err := validation.AccountID(accountID); err != nil {
				return fmt.Errorf("--account-id %w", err)
			}
			if endpoint != "" {
				if err := validation.Endpoint(endpoint); err != nil {
					return err
				}
				endpoint = config.NormalizeEndpoint(endpoint)
			}
			if profile == "" {
				profile = "default"
			}

			account := config.Account{
				APIToken:  token,
				AccountID: accountID,
				Endpoint:  endpoint,
			}
			if err := config.SaveProfile(profile, account); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"saved":      true,
					"profile":    profile,
					"account_id": accountID,
					"endpoint":   endpointOrDefault(endpoint),
				})
			}
			printText(cmd, "Credentials saved.")
			printText(cmd, "  Profile: %s", profile)
			printText(cmd, "  Account ID: %s", accountID)
			printText(cmd, "  Endpoint: %s", endpointOrDefault(endpoint))
			return nil
		}),
	}

	cmd.Flags().StringVar(&token, "token", "", "Drip API token")
	cmd.Flags().StringVar(&accountID, "account-id", "", "Drip account ID")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Read DRIP_* credentials from a .env file")

	return cmd
}

func endpointOrDefault(endpoint string) string {
	if endpoint == "" {
		return api.DefaultEndpoint
	}
	return endpoint
}

func newAuthStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show current authentication configuration",
		Long:  "Display the credentials the next command would use. The API token is masked.",
		Example: strings.TrimSpace(`
  # Check authentication status
  drip auth status

  # JSON output for scripting
  drip auth status --json
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ResolveClientConfig(flags.Profile, flags.Endpoint)
			if err != nil {
				if errors.Is(err, config.ErrNotConfigured) {
					if isJSON(cmd) {
						return printJSON(cmd, map[string]any{
							"authenticated": false,
							"message":       "Not authenticated. Run 'drip auth login' to configure credentials.",
						})
					}
					printText(cmd, "Not authenticated.")
					printText(cmd, "Run 'drip auth login' to configure credentials.")
					return nil
				}
				return fmt.Errorf("failed to load credentials: %w", err)
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"authenticated": true,
					"account_id":    cfg.AccountID,
					"endpoint":      endpointOrDefault(cfg.Endpoint),
					"api_token":     maskToken(cfg.Token),
					"source":        cfg.Source,
				})
			}

			printText(cmd, "Authenticated")
			printText(cmd, "  Account ID: %s", cfg.AccountID)
			printText(cmd, "  Endpoint: %s", endpointOrDefault(cfg.Endpoint))
			printText(cmd, "  API Token: %s", maskToken(cfg.Token))
			printText(cmd, "  Source: %s", cfg.Source)
			return nil
		}),
	}

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove credentials from keychain",
		Long:  "Delete a stored profile (the current one unless --profile is given) from your OS keychain.",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			profile := flags.Profile
			if profile == "" {
				current, err := config.CurrentProfile()
				if err != nil {
					return err
				}
				profile = current
			}

			if _, err := config.LoadProfile(profile); err != nil {
				if errors.Is(err, config.ErrNotConfigured) {
					printText(cmd, "No credentials found for profile %s.", profile)
					return nil
				}
				return err
			}

			if err := config.DeleteProfile(profile); err != nil {
				return fmt.Errorf("failed to remove credentials: %w", err)
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"removed": true, "profile": profile})
			}
			printText(cmd, "Profile %s removed.", profile)
			return nil
		}),
	}

	return cmd
}

type profileEntry struct {
	Name      string `json:"name"`
	AccountID string `json:"account_id,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Current   bool   `json:"current"`
}

func newAuthProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List saved profiles",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			names, err := config.ListProfiles()
			if err != nil {
				return err
			}
			current, err := config.CurrentProfile()
			if err != nil {
				return err
			}

			entries := make([]profileEntry, 0, len(names))
			for _, name := range names {
				entry := profileEntry{Name: name, Current: name == current}
				if account, err := config.LoadProfile(name); err == nil {
					entry.AccountID = account.AccountID
					entry.Endpoint = account.Endpoint
				}
				entries = append(entries, entry)
			}

			if isJSON(cmd) {
				return printJSON(cmd, entries)
			}

			f := formatter(cmd)
			if len(entries) == 0 {
				f.Empty("No profiles saved. Run 'drip auth login' to add one.")
				return nil
			}
			f.StartTable([]string{"", "PROFILE", "ACCOUNT", "ENDPOINT"})
			for _, e := range entries {
				marker := ""
				if e.Current {
					marker = "*"
				}
				f.Row(marker, e.Name, e.AccountID, endpointOrDefault(e.Endpoint))
			}
			return f.EndTable()
		}),
	}

	return cmd
}

func newAuthSwitchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "switch <profile>",
		Short: "Make a saved profile current",
		Args:  cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			profile := strings.TrimSpace(args[0])
			if _, err := config.LoadProfile(profile); err != nil {
				if errors.Is(err, config.ErrNotConfigured) {
					return fmt.Errorf("profile %q not found", profile)
				}
				return err
			}
			if err := config.SetCurrentProfile(profile); err != nil {
				return err
			}
			printText(cmd, "Switched to profile %s.", profile)
			return nil
		}),
	}

	return cmd
}

func maskToken(token string) string {
	if len(token) < 8 {
		return strings.Repeat("*", len(token)) // Match actual length
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
