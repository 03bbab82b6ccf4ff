package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/spf13/pflag"

	"github.com/springboard/drip-cli/internal/api"
	"github.com/springboard/drip-cli/internal/config"
)

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"nil", nil, exitOK},
		{"help", pflag.ErrHelp, exitOK},
		{"not configured", config.ErrNotConfigured, exitAuth},
		{"wrapped not configured", fmt.Errorf("resolve: %w", config.ErrNotConfigured), exitAuth},
		{"unauthorized", &api.APIError{StatusCode: 401, Body: "bad token"}, exitAuth},
		{"forbidden", &api.APIError{StatusCode: 403, Body: "forbidden"}, exitForbidden},
		{"not found", &api.APIError{StatusCode: 404, Body: "not found"}, exitNotFound},
		{"validation", &api.APIError{StatusCode: 422, Body: "invalid"}, exitUsage},
		{"server", &api.APIError{StatusCode: 500, Body: "oops"}, exitServer},
		{"rate limited", &api.RetryExhaustedError{StatusCode: 429, Attempts: 9}, exitRateLimited},
		{"unavailable", &api.RetryExhaustedError{StatusCode: 503, Attempts: 9}, exitServer},
		{"connection", &api.ConnectionError{Method: "GET", URL: "https://x", Err: errors.New("reset")}, exitNetwork},
		{"usage", errors.New(`unknown command "nope" for "drip"`), exitUsage},
		{"usage shorthand", errors.New("unknown shorthand flag: 'a' in -a"), exitUsage},
		{"usage args", errors.New("accepts 2 arg(s), received 1"), exitUsage},
		{"network", errors.New("dial tcp: connection refused"), exitNetwork},
		{"cancelled", context.Canceled, exitNetwork},
		{"generic", errors.New("boom"), exitGeneric},
		{"missing file", &fs.PathError{Op: "open", Path: "/nope.csv", Err: syscall.ENOENT}, exitGeneric},
		{"wrapped missing file", fmt.Errorf("open input: %w", &fs.PathError{Op: "open", Path: "/nope.csv", Err: syscall.ENOENT}), exitGeneric},
		{"permission denied", &fs.PathError{Op: "open", Path: "/secret.csv", Err: syscall.EACCES}, exitGeneric},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.err); got != tc.code {
				t.Fatalf("ExitCode(%v) = %d, want %d", tc.err, got, tc.code)
			}
		})
	}
}

func TestExitCode_HandledErrorUsesStoredCode(t *testing.T) {
	err := &handledError{err: errors.New("wrapped"), exitCode: exitNotFound}
	if got := ExitCode(err); got != exitNotFound {
		t.Fatalf("ExitCode(handled) = %d, want %d", got, exitNotFound)
	}
}

func TestExitCode_HandledErrorFallsBackToInner(t *testing.T) {
	err := &handledError{err: &api.APIError{StatusCode: 404}}
	if got := ExitCode(err); got != exitNotFound {
		t.Fatalf("ExitCode(handled) = %d, want %d", got, exitNotFound)
	}
}

func TestExitCode_LocalFileErrorIsNotNetwork(t *testing.T) {
	_, err := os.Open(filepath.Join(t.TempDir(), "missing.csv"))
	if err == nil {
		t.Fatal("expected open error")
	}
	if isNetworkError(err) {
		t.Fatalf("isNetworkError(%v) = true, want false", err)
	}
	if got := ExitCode(fmt.Errorf("open input: %w", err)); got != exitGeneric {
		t.Fatalf("ExitCode(%v) = %d, want %d", err, got, exitGeneric)
	}
}
