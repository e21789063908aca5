package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for drivercatalog.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drivercatalog",
		Short: "Catalog of NVIDIA driver download links",
		Long: `drivercatalog walks the NVIDIA driver configurator with a browser,
records every product / operating system / download type / language
combination it offers, and resolves each combination to a download link.

The catalog is kept in a local file by default. Failed combinations are
kept too, so "cleanup" can retry them later without walking the page again.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: "+configFileName+" in current or home directory)")
	cmd.PersistentFlags().String("log-format", logFormatText, "Log format: text or json")

	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewOpenCmd())
	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewCleanupCmd())
	cmd.AddCommand(NewCompressCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewStatsCmd())
	cmd.AddCommand(NewOptionsCmd())
	cmd.AddCommand(NewLookupCmd())
	cmd.AddCommand(NewShellCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
