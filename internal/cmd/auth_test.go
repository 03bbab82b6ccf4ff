package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/springboard/drip-cli/internal/config"
)

func setupAuthEnv(t *testing.T) {
	t.Helper()
	withTestKeyring(t)
	isolateEnv(t)
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected string
	}{
		{"empty token", "", ""},
		{"short token", "abc", "***"},
		{"7 characters", "abcdefg", "*******"},
		{"exactly 8", "abcdefgh", "abcdefgh"},
		{"long token", "abcd1234efgh", "abcd****efgh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskToken(tt.token))
		})
	}
}

func TestAuthLogin_SavesProfile(t *testing.T) {
	setupAuthEnv(t)

	stdout, _, err := runCmd(t, "auth", "login",
		"--token", "abcd1234efgh",
		"--account-id", "9999",
		"--endpoint", "https://api.example.com/v2",
		"--profile", "work")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Credentials saved.")
	assert.Contains(t, stdout, "Profile: work")

	account, err := config.LoadProfile("work")
	require.NoError(t, err)
	assert.Equal(t, "abcd1234efgh", account.APIToken)
	assert.Equal(t, "9999", account.AccountID)
	assert.Equal(t, "https://api.example.com/v2/", account.Endpoint)

	current, err := config.CurrentProfile()
	require.NoError(t, err)
	assert.Equal(t, "work", current)
}

func TestAuthLogin_DefaultProfileAndEndpoint(t *testing.T) {
	setupAuthEnv(t)

	stdout, _, err := runCmd(t, "auth", "login", "--token", "tok-123456", "--account-id", "1", "-o", "json")
	require.NoError(t, err)

	out := decodeJSON(t, stdout)
	assert.Equal(t, "default", out["profile"])
	assert.Equal(t, "https://api.getdrip.com/v2/", out["endpoint"])

	account, err := config.LoadProfile("default")
	require.NoError(t, err)
	assert.Empty(t, account.Endpoint)
}

func TestAuthLogin_Validation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing token", []string{"--account-id", "1"}, "--token is required"},
		{"missing account", []string{"--token", "tok"}, "--account-id is required"},
		{"account with slash", []string{"--token", "tok", "--account-id", "1/2"}, "plain account identifier"},
		{"bad endpoint scheme", []string{"--token", "tok", "--account-id", "1", "--endpoint", "ftp://x"}, "scheme must be http or https"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupAuthEnv(t)

			_, stderr, err := runCmd(t, append([]string{"auth", "login"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, stderr, tt.wantErr)
			assert.Equal(t, exitUsage, ExitCode(err))

			profiles, err := config.ListProfiles()
			require.NoError(t, err)
			assert.Empty(t, profiles)
		})
	}
}

func TestAuthLogin_EnvFile(t *testing.T) {
	setupAuthEnv(t)

	path := filepath.Join(t.TempDir(), "drip.env")
	content := "DRIP_API_TOKEN=file-token-123\nDRIP_ACCOUNT_ID=4242\nDRIP_PROFILE=fromfile\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, _, err := runCmd(t, "auth", "login", "--env-file", path)
	require.NoError(t, err)

	account, err := config.LoadProfile("fromfile")
	require.NoError(t, err)
	assert.Equal(t, "file-token-123", account.APIToken)
	assert.Equal(t, "4242", account.AccountID)
}

func TestAuthLogin_FlagsBeatEnvFile(t *testing.T) {
	setupAuthEnv(t)

	path := filepath.Join(t.TempDir(), "drip.env")
	require.NoError(t, os.WriteFile(path, []byte("DRIP_API_TOKEN=file-token\nDRIP_ACCOUNT_ID=1\n"), 0o600))

	_, _, err := runCmd(t, "auth", "login", "--env-file", path, "--account-id", "77")
	require.NoError(t, err)

	account, err := config.LoadProfile("default")
	require.NoError(t, err)
	assert.Equal(t, "file-token", account.APIToken)
	assert.Equal(t, "77", account.AccountID)
}

func TestAuthStatus_NotConfigured(t *testing.T) {
	setupAuthEnv(t)

	stdout, _, err := runCmd(t, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Not authenticated.")

	stdout, _, err = runCmd(t, "auth", "status", "--json")
	require.NoError(t, err)
	assert.Equal(t, false, decodeJSON(t, stdout)["authenticated"])
}

func TestAuthStatus_FromProfile(t *testing.T) {
	setupAuthEnv(t)
	require.NoError(t, config.SaveProfile("work", config.Account{APIToken: "abcd1234efgh", AccountID: "9999"}))

	stdout, _, err := runCmd(t, "auth", "status", "--json")
	require.NoError(t, err)

	out := decodeJSON(t, stdout)
	assert.Equal(t, true, out["authenticated"])
	assert.Equal(t, "9999", out["account_id"])
	assert.Equal(t, "abcd****efgh", out["api_token"])
	assert.Equal(t, "profile:work", out["source"])
	assert.NotContains(t, stdout, "abcd1234efgh")
}

func TestAuthStatus_FromEnv(t *testing.T) {
	setupAuthEnv(t)
	t.Setenv(config.EnvAPIToken, "env-token-0001")
	t.Setenv(config.EnvAccountID, "5")

	stdout, _, err := runCmd(t, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Source: env")
	assert.Contains(t, stdout, "Account ID: 5")
	assert.Contains(t, stdout, "env-******0001")
}

func TestAuthLogout(t *testing.T) {
	setupAuthEnv(t)
	require.NoError(t, config.SaveProfile("a", config.Account{APIToken: "tok-a", AccountID: "1"}))
	require.NoError(t, config.SaveProfile("b", config.Account{APIToken: "tok-b", AccountID: "2"}))

	stdout, _, err := runCmd(t, "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Profile b removed.")

	profiles, err := config.ListProfiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, profiles)

	current, err := config.CurrentProfile()
	require.NoError(t, err)
	assert.Equal(t, "a", current)
}

func TestAuthLogout_NothingStored(t *testing.T) {
	setupAuthEnv(t)

	stdout, _, err := runCmd(t, "auth", "logout", "--profile", "ghost")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No credentials found for profile ghost.")
}

func TestAuthProfilesAndSwitch(t *testing.T) {
	setupAuthEnv(t)
	require.NoError(t, config.SaveProfile("prod", config.Account{APIToken: "tok-p", AccountID: "1"}))
	require.NoError(t, config.SaveProfile("staging", config.Account{APIToken: "tok-s", AccountID: "2", Endpoint: "https://staging.example.com/v2/"}))

	stdout, _, err := runCmd(t, "auth", "profiles", "-o", "json")
	require.NoError(t, err)

	var entries []profileEntry
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, profileEntry{Name: "prod", AccountID: "1", Current: false}, entries[0])
	assert.Equal(t, profileEntry{Name: "staging", AccountID: "2", Endpoint: "https://staging.example.com/v2/", Current: true}, entries[1])

	_, _, err = runCmd(t, "auth", "switch", "prod")
	require.NoError(t, err)
	current, err := config.CurrentProfile()
	require.NoError(t, err)
	assert.Equal(t, "prod", current)

	stdout, _, err = runCmd(t, "auth", "profiles")
	require.NoError(t, err)
	assert.Contains(t, stdout, "PROFILE")
	assert.Contains(t, stdout, "https://api.getdrip.com/v2/")
}

func TestAuthSwitch_UnknownProfile(t *testing.T) {
	setupAuthEnv(t)

	_, stderr, err := runCmd(t, "auth", "switch", "nope")
	require.Error(t, err)
	assert.Contains(t, stderr, `profile "nope" not found`)
}

func TestAuthProfiles_Empty(t *testing.T) {
	setupAuthEnv(t)

	stdout, stderr, err := runCmd(t, "auth", "profiles")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "No profiles saved.")
}
