package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/springboard/drip-cli/internal/api"
	"github.com/springboard/drip-cli/internal/config"
)

// HandleError processes an error and returns a user-friendly message with suggestions
func HandleError(err error) string {
	if err == nil {
		return ""
	}

	var msg strings.Builder

	var apiErr *api.APIError
	var exhausted *api.RetryExhaustedError
	var connErr *api.ConnectionError

	switch {
	case errors.Is(err, config.ErrNotConfigured):
		fmt.Fprintf(&msg, "Error: %s\n\n", err.Error())
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: drip auth login --token <token> --account-id <id>\n")
		msg.WriteString("  - Or set DRIP_API_TOKEN and DRIP_ACCOUNT_ID\n")

	case errors.As(err, &exhausted) && exhausted.StatusCode == http.StatusTooManyRequests:
		fmt.Fprintf(&msg, "Rate limit exceeded after %d attempts.\n\n", exhausted.Attempts)
		msg.WriteString("Suggestions:\n")
		if exhausted.RateLimit != nil && exhausted.RateLimit.ResetAt != nil {
			fmt.Fprintf(&msg, "  - The limit resets at %s\n", exhausted.RateLimit.ResetAt.Format(time.RFC3339))
		}
		msg.WriteString("  - Drip allows 3600 requests per hour per account\n")
		msg.WriteString("  - Use --throttle-rps to spread requests out\n")
		msg.WriteString("  - Raise --max-rate-limit-retries (-1 waits indefinitely)\n")

	case errors.As(err, &exhausted):
		fmt.Fprintf(&msg, "Drip is unavailable (HTTP %d) after %d attempts.\n\n", exhausted.StatusCode, exhausted.Attempts)
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Wait a few minutes and retry\n")
		msg.WriteString("  - Raise --max-unavailable-retries (-1 waits indefinitely)\n")

	case errors.As(err, &apiErr):
		fmt.Fprintf(&msg, "API error (HTTP %d): %s\n\n", apiErr.StatusCode, strings.TrimSpace(apiErr.Body))
		msg.WriteString(suggestionsForStatusCode(apiErr.StatusCode, apiErr.Body))
		if apiErr.RequestID != "" {
			fmt.Fprintf(&msg, "\nRequest ID: %s\n", apiErr.RequestID)
		}

	case errors.As(err, &connErr):
		fmt.Fprintf(&msg, "Connection failed: %v\n\n", connErr.Err)
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Check your network connection\n")
		msg.WriteString("  - Verify the endpoint: drip auth status\n")
		if strings.Contains(connErr.Error(), "certificate") {
			msg.WriteString("  - The server's TLS certificate was rejected\n")
		}

	default:
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())
	}

	return msg.String()
}

func suggestionsForStatusCode(code int, body string) string {
	var suggestions strings.Builder
	suggestions.WriteString("Suggestions:\n")

	switch code {
	case 400:
		suggestions.WriteString("  - Check your request parameters\n")
		suggestions.WriteString("  - Use --debug to see the full request\n")

	case 401:
		suggestions.WriteString("  - Your API token may be invalid or revoked\n")
		suggestions.WriteString("  - Run: drip auth login\n")

	case 403:
		suggestions.WriteString("  - The token has no access to this account\n")
		suggestions.WriteString("  - Check the account id: drip auth status\n")

	case 404:
		suggestions.WriteString("  - The subscriber doesn't exist in this account\n")
		suggestions.WriteString("  - Check the id or email is correct\n")

	case 422:
		suggestions.WriteString("  - Validation failed\n")
		if strings.Contains(body, "email") {
			suggestions.WriteString("  - An email address may be malformed\n")
		}
		suggestions.WriteString("  - Check your input values\n")

	default:
		if code >= 500 {
			suggestions.WriteString("  - Server error - not your fault\n")
			suggestions.WriteString("  - Wait and retry\n")
		} else {
			suggestions.WriteString("  - Use --debug to inspect the request\n")
		}
	}

	return suggestions.String()
}
