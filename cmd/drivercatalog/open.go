package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/drivercatalog/internal/discovery"
)

// NewOpenCmd creates the open command.
func NewOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Check that the configured browser can load the driver page",
		Long: `Open starts the configured browser, loads the driver configurator and
reads the product type dropdown, then closes the browser again.

Use it to check a browser or WebDriver setup before a long scrape.`,
		Args: cobra.NoArgs,
		RunE: runOpenCmd,
	}
}

// runOpenCmd executes the open command.
func runOpenCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd.Context(), e.logger)
	defer cancel()

	session, err := discovery.BrowserOpener(e.cfg, e.logger)(ctx)
	if err != nil {
		return fmt.Errorf("failed to start %s: %w", e.cfg.Engine, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			e.logger.Warn("failed to close browser session", "error", err)
		}
	}()

	if err := session.Navigate(ctx, e.cfg.StartURL); err != nil {
		return fmt.Errorf("failed to load %s: %w", e.cfg.StartURL, err)
	}
	options, err := session.ReadOptions(ctx, e.cfg.Controls.ProductType)
	if err != nil {
		return fmt.Errorf("driver page loaded but the product type dropdown is unreadable: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s browser ready: %s offers %d product type option(s)\n",
		e.cfg.Engine, e.cfg.StartURL, len(options))
	return nil
}
