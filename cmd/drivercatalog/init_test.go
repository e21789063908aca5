package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/drivercatalog/internal/config"
)

// TestNewInitCmd tests the init command creation.
func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()

	t.Run("has output flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.Shorthand != "o" {
			t.Errorf("expected shorthand 'o', got %q", flag.Shorthand)
		}
		if flag.DefValue != configFileName {
			t.Errorf("expected default %q, got %q", configFileName, flag.DefValue)
		}
	})

	t.Run("has force flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("force")
		if flag == nil {
			t.Fatal("expected force flag")
		}
		if flag.Shorthand != "f" || flag.DefValue != "false" {
			t.Errorf("unexpected force flag %q/%q", flag.Shorthand, flag.DefValue)
		}
	})
}

func executeInit(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewInitCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// TestRunInitCmd tests the init command execution.
func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("creates a loadable config file", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), "nested", configFileName)
		out, err := executeInit(t, "firefox", "all", "all", "online", "no", "-o", outputPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Selected Firefox webdriver") || !strings.Contains(out, outputPath) {
			t.Errorf("unexpected output %q", out)
		}

		cfg, err := config.LoadFile(outputPath)
		if err != nil {
			t.Fatalf("LoadFile failed: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("written config does not validate: %v", err)
		}
		got := []any{cfg.Engine, cfg.LanguageScope, cfg.OSScope, cfg.Source, cfg.ConsumerOnly}
		want := []any{config.EngineFirefox, config.ScopeAll, config.ScopeAll, config.SourceOnline, false}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), configFileName)
		if err := os.WriteFile(outputPath, []byte("engine: chrome\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := executeInit(t, "-o", outputPath)
		if err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Errorf("expected an already exists error, got %v", err)
		}
	})

	t.Run("force overwrites", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), configFileName)
		if err := os.WriteFile(outputPath, []byte("engine: chrome\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := executeInit(t, "firefox", "-o", outputPath, "-f"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg, err := config.LoadFile(outputPath)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Engine != config.EngineFirefox {
			t.Errorf("expected firefox, got %q", cfg.Engine)
		}
	})

	t.Run("too many arguments", func(t *testing.T) {
		t.Parallel()

		_, err := executeInit(t, "a", "b", "c", "d", "e", "f", "-o", filepath.Join(t.TempDir(), "x.yaml"))
		if err == nil {
			t.Error("expected an error for six arguments")
		}
	})
}

// TestConfigFromArgs tests positional argument handling.
func TestConfigFromArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want []any
	}{
		{
			name: "defaults",
			want: []any{config.EngineChrome, config.LanguagePrimary, config.OSWindows, config.SourceCache, true},
		},
		{
			name: "unknown values keep defaults",
			args: []string{"safari", "de", "linux", "offline", "yes"},
			want: []any{config.EngineChrome, config.LanguagePrimary, config.OSWindows, config.SourceCache, true},
		},
		{
			name: "partial",
			args: []string{"chrome", "all"},
			want: []any{config.EngineChrome, config.ScopeAll, config.OSWindows, config.SourceCache, true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, notes := configFromArgs(tt.args)
			got := []any{cfg.Engine, cfg.LanguageScope, cfg.OSScope, cfg.Source, cfg.ConsumerOnly}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
			if len(notes) != 5 {
				t.Errorf("expected one note per choice, got %d", len(notes))
			}
		})
	}
}
