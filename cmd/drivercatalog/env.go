package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/drivercatalog/internal/config"
	dlog "github.com/nao1215/drivercatalog/internal/log"
	"github.com/nao1215/drivercatalog/internal/store"
)

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// Log formats.
const (
	logFormatText = "text"
	logFormatJSON = "json"
)

// env is what every command needs once flags are parsed.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

// loadEnv reads the configuration selected by --config, validates it and
// builds the logger.
func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(getConfigFlag(cmd))
	if err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), getLogFormatFlag(cmd), cfg.Verbose)
	if err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath != "" {
		logger.Debug("configuration loaded", "path", cfg.ConfigFilePath)
	}
	return &env{cfg: cfg, logger: logger}, nil
}

// newLogger builds the logger for the selected format.
func newLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	switch format {
	case logFormatText, "":
		return dlog.NewLogger(w, verbose), nil
	case logFormatJSON:
		return dlog.NewJSONLogger(w, verbose), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (use %s or %s)", format, logFormatText, logFormatJSON)
	}
}

// openStore opens the configured catalog store.
func (e *env) openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, e.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog store: %w", err)
	}
	e.logger.Debug("catalog store opened", "backend", e.cfg.StoreBackend)
	return st, nil
}

// closeStore closes st and logs a failure.
func (e *env) closeStore(st store.Store) {
	if err := st.Close(); err != nil {
		e.logger.Error("failed to close catalog store", "error", err)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the config flag from the command or its parent.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// getLogFormatFlag retrieves the log-format flag from the command or its parent.
func getLogFormatFlag(cmd *cobra.Command) string {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		format, err = cmd.Root().PersistentFlags().GetString("log-format")
		if err != nil {
			return logFormatText
		}
	}
	return format
}

// createOutput opens path for writing, creating parent directories.
// An empty path or "-" writes to fallback.
func createOutput(path string, fallback io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return fallback, func() error { return nil }, nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
