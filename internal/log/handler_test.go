package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestBodyHandler_ShortensBodies tests that body attributes are collapsed.
func TestBodyHandler_ShortensBodies(t *testing.T) {
	t.Parallel()

	page := "<!DOCTYPE html>\n<html>\n  <head><title>Error</title></head>\n" + strings.Repeat("<p>filler</p>\n", 100) + "</html>"

	tests := []struct {
		name      string
		key       string
		value     string
		wantShort bool
	}{
		{name: "body key is shortened", key: "body", value: page, wantShort: true},
		{name: "Response key (mixed case) is shortened", key: "Response", value: page, wantShort: true},
		{name: "html key is shortened", key: "html", value: page, wantShort: true},
		{name: "url key is kept", key: "url", value: "https://www.nvidia.com/Download/processDriver.aspx?dtcid=1", wantShort: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewLogger(&buf, true)
			logger.Info("resolved", tt.key, tt.value)
			output := buf.String()

			if tt.wantShort {
				if strings.Contains(output, "filler</p>\n") || strings.Count(output, "\n") != 1 {
					t.Errorf("expected a single shortened line, got: %s", output)
				}
				if !strings.Contains(output, "...") {
					t.Errorf("expected truncation marker, got: %s", output)
				}
				return
			}
			if !strings.Contains(output, tt.value) {
				t.Errorf("expected value %q in output, got: %s", tt.value, output)
			}
		})
	}
}

// TestBodyHandler_MasksCredentials tests credential masking.
func TestBodyHandler_MasksCredentials(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf, true)
	logger.Info("request", "cookie", "session=abc123", "aws_secret_access_key", "wJalrXUtnFEMI")
	output := buf.String()

	if strings.Contains(output, "abc123") || strings.Contains(output, "wJalrXUtnFEMI") {
		t.Errorf("expected credentials to be masked, got: %s", output)
	}
	if strings.Count(output, MaskValue) != 2 {
		t.Errorf("expected two masks, got: %s", output)
	}
}

// TestBodyHandler_LogLevels tests the verbose switch.
func TestBodyHandler_LogLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		verbose    bool
		level      slog.Level
		shouldShow bool
	}{
		{"debug hidden by default", false, slog.LevelDebug, false},
		{"info hidden by default", false, slog.LevelInfo, false},
		{"warn shown by default", false, slog.LevelWarn, true},
		{"debug shown when verbose", true, slog.LevelDebug, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.verbose)
			logger.Log(t.Context(), tt.level, "level check")

			if got := strings.Contains(buf.String(), "level check"); got != tt.shouldShow {
				t.Errorf("shown = %v, want %v: %s", got, tt.shouldShow, buf.String())
			}
		})
	}
}

// TestBodyHandler_WithAttrsAndGroup tests that derived handlers keep rewriting.
func TestBodyHandler_WithAttrsAndGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf, true).With("cookie", "s=1").WithGroup("resolver")
	logger.Info("chunk", "body", "line one\nline two", "key", "1/2/3/4/5/6")
	output := buf.String()

	if strings.Contains(output, "s=1") {
		t.Errorf("expected cookie from WithAttrs to be masked: %s", output)
	}
	if !strings.Contains(output, "line one line two") {
		t.Errorf("expected grouped body to be single-lined: %s", output)
	}
	if !strings.Contains(output, "resolver.key=1/2/3/4/5/6") {
		t.Errorf("expected grouped key: %s", output)
	}
}

// TestShorten tests the Shorten helper.
func TestShorten(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"  a \n b\t c ", 10, "a b c"},
		{"abcdef", 3, "abc..."},
		{"", 5, ""},
		{"héllo", 2, "h..."},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := Shorten(tt.in, tt.n); got != tt.want {
				t.Errorf("Shorten(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}

// TestNewBodyHandler_NilHandler tests the fallback to the default handler.
func TestNewBodyHandler_NilHandler(t *testing.T) {
	t.Parallel()

	if h := NewBodyHandler(nil); h.handler == nil {
		t.Error("expected fallback handler")
	}
}

// TestNewJSONLogger tests JSON output.
func TestNewJSONLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewJSONLogger(&buf, false).Warn("denied", "body", "Access Denied\n")
	output := buf.String()
	if !strings.HasPrefix(output, "{") || !strings.Contains(output, `"body":"Access Denied"`) {
		t.Errorf("unexpected JSON output: %s", output)
	}
}
