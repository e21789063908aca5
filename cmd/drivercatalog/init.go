package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/drivercatalog/internal/config"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [engine] [lang-scope] [os-scope] [source] [consumer]",
		Short: "Create a drivercatalog configuration file",
		Long: `Init writes a configuration file selecting how the catalog is scraped.

Every argument is optional and positional; anything not recognised keeps
the default:
  engine      chrome (default) or firefox
  lang-scope  en (default, English (US) only) or all
  os-scope    windows (default) or all
  source      cache (default, reuse the stored catalog) or online
  consumer    "no" to walk every product type instead of consumer cards

Walking every language takes a long time; stick to "en" unless you need
localized drivers.

Examples:
  # Chrome, English, Windows, reuse the stored catalog
  drivercatalog init

  # Firefox, all languages and systems, always walk the page
  drivercatalog init firefox all all online

  # Write the file somewhere else, overwriting it
  drivercatalog init -o ~/.config/drivercatalog/config.yaml -f`,
		Args: cobra.MaximumNArgs(5),
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, args []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	cfg, notes := configFromArgs(args)
	if err := config.WriteFile(outputPath, cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, n := range notes {
		fmt.Fprintln(out, n)
	}
	fmt.Fprintf(out, "\nCreated configuration file: %s\n", outputPath)
	return nil
}

// configFromArgs applies the positional init arguments to the defaults and
// describes each choice.
func configFromArgs(args []string) (*config.Config, []string) {
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	cfg := config.NewConfig()
	var notes []string

	if arg(0) == config.EngineFirefox {
		cfg.Engine = config.EngineFirefox
		notes = append(notes, "Selected Firefox webdriver")
	} else {
		cfg.Engine = config.EngineChrome
		notes = append(notes, "Selected Chrome webdriver")
	}

	if arg(1) == config.ScopeAll {
		cfg.LanguageScope = config.ScopeAll
		notes = append(notes, "Get all language drivers")
	} else {
		cfg.LanguageScope = config.LanguagePrimary
		notes = append(notes, "Only get the "+cfg.PrimaryLanguage+" drivers")
	}

	if arg(2) == config.ScopeAll {
		cfg.OSScope = config.ScopeAll
		notes = append(notes, "Get all operating system drivers")
	} else {
		cfg.OSScope = config.OSWindows
		notes = append(notes, "Only get the Windows drivers")
	}

	if arg(3) == config.SourceOnline {
		cfg.Source = config.SourceOnline
		notes = append(notes, "Walk the driver page on every scrape")
	} else {
		cfg.Source = config.SourceCache
		notes = append(notes, "Reuse the stored catalog when there is one")
	}

	if arg(4) == "no" {
		cfg.ConsumerOnly = false
		notes = append(notes, "Get all product types")
	} else {
		cfg.ConsumerOnly = true
		notes = append(notes, "Get only consumer product types")
	}

	return cfg, notes
}
