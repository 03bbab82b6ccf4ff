package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/springboard/drip-cli/internal/validation"
)

// Environment variables that override stored profiles.
const (
	EnvAPIToken  = "DRIP_API_TOKEN"
	EnvAccountID = "DRIP_ACCOUNT_ID"
	EnvEndpoint  = "DRIP_ENDPOINT"
	EnvProfile   = "DRIP_PROFILE"
)

// ClientConfig contains resolved API client settings.
type ClientConfig struct {
	Endpoint  string
	Token     string
	AccountID string
	// Source names where the credentials came from: "env" or "profile:<name>".
	Source string
}

// ResolveClientConfig picks credentials in this order: DRIP_API_TOKEN and
// DRIP_ACCOUNT_ID from the environment, then the named profile, then
// DRIP_PROFILE, then the current profile. endpointOverride and DRIP_ENDPOINT
// replace the stored endpoint, in that order of precedence. The account id and
// endpoint are validated whichever source supplied them, since both end up in
// request paths.
func ResolveClientConfig(profile, endpointOverride string) (ClientConfig, error) {
	var cfg ClientConfig

	if token := strings.TrimSpace(os.Getenv(EnvAPIToken)); token != "" {
		accountID := strings.TrimSpace(os.Getenv(EnvAccountID))
		if accountID == "" {
			return ClientConfig{}, errors.New("DRIP_ACCOUNT_ID must be set when DRIP_API_TOKEN is set")
		}
		cfg = ClientConfig{Token: token, AccountID: accountID, Source: "env"}
	} else {
		if profile == "" {
			profile = strings.TrimSpace(os.Getenv(EnvProfile))
		}
		if profile == "" {
			current, err := CurrentProfile()
			if err != nil {
				return ClientConfig{}, err
			}
			profile = current
		}
		account, err := LoadProfile(profile)
		if err != nil {
			return ClientConfig{}, err
		}
		cfg = ClientConfig{
			Endpoint:  account.Endpoint,
			Token:     account.APIToken,
			AccountID: account.AccountID,
			Source:    "profile:" + profile,
		}
	}

	if err := validation.AccountID(cfg.AccountID); err != nil {
		if cfg.Source == "env" {
			return ClientConfig{}, fmt.Errorf("%s %w", EnvAccountID, err)
		}
		return ClientConfig{}, fmt.Errorf("%s account id %w", cfg.Source, err)
	}

	endpointSource := cfg.Source
	if env := strings.TrimSpace(os.Getenv(EnvEndpoint)); env != "" {
		cfg.Endpoint = env
		endpointSource = EnvEndpoint
	}
	if endpointOverride != "" {
		cfg.Endpoint = endpointOverride
		endpointSource = "--endpoint"
	}
	if cfg.Endpoint != "" {
		if err := validation.Endpoint(cfg.Endpoint); err != nil {
			return ClientConfig{}, fmt.Errorf("%s: %w", endpointSource, err)
		}
	}
	cfg.Endpoint = NormalizeEndpoint(cfg.Endpoint)
	return cfg, nil
}

// NormalizeEndpoint trims whitespace and guarantees a trailing slash, since
// request paths are appended to the endpoint verbatim. Empty stays empty.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || strings.HasSuffix(endpoint, "/") {
		return endpoint
	}
	return endpoint + "/"
}
