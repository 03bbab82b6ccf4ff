package debug

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestWithDebug(t *testing.T) {
	if IsEnabled(context.Background()) {
		t.Error("IsEnabled should return false by default")
	}
	if !IsEnabled(WithDebug(context.Background(), true)) {
		t.Error("IsEnabled should return true when debug is enabled")
	}
	if IsEnabled(WithDebug(context.Background(), false)) {
		t.Error("IsEnabled should return false when debug is disabled")
	}
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, false)
	logger.Info("rate limited, retrying")
	logger.Warn("operation failed, retrying", "attempt", 1)
	out := buf.String()
	if strings.Contains(out, "rate limited") {
		t.Error("info should be suppressed without debug")
	}
	if !strings.Contains(out, "attempt=1") {
		t.Errorf("warn missing from output: %q", out)
	}

	buf.Reset()
	NewLogger(&buf, true).Debug("request complete", "status", 200)
	if !strings.Contains(buf.String(), "status=200") {
		t.Errorf("debug missing from output: %q", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	if Logger(context.Background()) != slog.Default() {
		t.Error("expected slog.Default when unset")
	}
	l := NewLogger(&bytes.Buffer{}, true)
	if Logger(WithLogger(context.Background(), l)) != l {
		t.Error("expected stored logger")
	}
}
