package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/drivercatalog/internal/config"
	"github.com/nao1215/drivercatalog/internal/discovery"
	"github.com/nao1215/drivercatalog/internal/metrics"
	"github.com/nao1215/drivercatalog/internal/pipeline"
	"github.com/nao1215/drivercatalog/internal/report"
	"github.com/nao1215/drivercatalog/internal/resolver"
	"github.com/nao1215/drivercatalog/internal/store"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Discover driver combinations and resolve their download links",
		Long: `Scrape builds the catalog.

With source "online" the driver page is walked with the configured browser
and every combination found is resolved. With source "cache" the stored
catalog is reused and all of its combinations are resolved again; the page
is only walked when nothing is stored yet.

Requests are sent in chunks of 20 with a random pause of 1 to 7 seconds
before each chunk. The catalog is saved every few chunks, so an
interrupted scrape can be finished with "cleanup".

Examples:
  # Use the source from the configuration file
  drivercatalog scrape

  # Walk the page even if a catalog is stored
  drivercatalog scrape --source online`,
		Args: cobra.NoArgs,
		RunE: runScrapeCmd,
	}

	cmd.Flags().StringP("source", "s", "",
		"Tree source: cache or online (default from configuration)")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics to this file after the run")

	return cmd
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, e.cfg); err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context(), e.logger)
	defer cancel()

	st, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer e.closeStore(st)

	m := metrics.New()
	p := pipeline.NewScrape(e.components(st, m), e.cfg.Source)
	return e.execute(ctx, cmd.OutOrStdout(), "scrape", p, m)
}

// applyRunFlags layers the scrape and cleanup flags over the configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	override := &config.Config{}
	if f := cmd.Flags().Lookup("source"); f != nil && f.Changed {
		override.Source = f.Value.String()
	}
	if f := cmd.Flags().Lookup("metrics-file"); f != nil && f.Changed {
		override.MetricsFile = f.Value.String()
	}
	if err := cfg.Merge(override); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	return nil
}

// components wires the pipeline collaborators from the configuration.
func (e *env) components(st store.Store, m *metrics.Collectors) pipeline.Components {
	walker := discovery.New(
		discovery.BrowserOpener(e.cfg, e.logger),
		append(discovery.ConfigOptions(e.cfg), discovery.WithLogger(e.logger))...,
	)
	return pipeline.Components{
		Store:           st,
		Discoverer:      walker,
		Resolver:        resolver.ConfigOptions(e.cfg),
		CheckpointEvery: e.cfg.CheckpointEvery,
		Metrics:         m,
		Logger:          e.logger,
	}
}

// execute runs p, writes the metrics file and prints the outcome tally.
func (e *env) execute(ctx context.Context, out io.Writer, name string, p *pipeline.Pipeline, m *metrics.Collectors) error {
	run := pipeline.NewRun()
	e.logger.Info("starting "+name, "run_id", run.ID, "steps", p.StepNames())

	runErr := p.Execute(ctx, run)

	if err := m.WriteTextfile(e.cfg.MetricsFile); err != nil {
		e.logger.Error("failed to write metrics", "error", err)
	}
	if runErr != nil {
		return fmt.Errorf("%s failed: %w", name, runErr)
	}

	fmt.Fprintf(out, "%s completed in %s (%d combination(s) resolved)\n\n",
		name, time.Since(run.StartedAt).Round(time.Millisecond), len(run.Keys))
	if slices.Contains(run.Performed, "discover") && !run.Discovered {
		fmt.Fprintln(out, "Stored catalog reused; use --source online to walk the page again.")
		fmt.Fprintln(out)
	}
	if _, err := report.NewTableWriter(out).Write(run.Tree); err != nil {
		return fmt.Errorf("failed to print summary: %w", err)
	}
	return nil
}
