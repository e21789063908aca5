package main

import (
	"github.com/spf13/cobra"

	"github.com/nao1215/drivercatalog/internal/metrics"
	"github.com/nao1215/drivercatalog/internal/pipeline"
)

// NewCleanupCmd creates the cleanup command.
func NewCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Retry the combinations that failed with a recoverable error",
		Long: `Cleanup loads the stored catalog, collects every combination that ended
in "access denied" or a transient error, resolves them again as one batch
and saves the catalog.

Combinations the vendor answered with "no certified downloads" are final
and never retried. Combinations that were never attempted, for example
after an interrupted scrape, are left alone unless --include-unresolved
is given or resume_unresolved is set in the configuration.

Running cleanup twice in a row never retries more than the first run did.`,
		Args: cobra.NoArgs,
		RunE: runCleanupCmd,
	}

	cmd.Flags().Bool("include-unresolved", false,
		"Also resolve combinations never attempted (default from configuration)")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics to this file after the run")

	return cmd
}

// runCleanupCmd executes the cleanup command.
func runCleanupCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, e.cfg); err != nil {
		return err
	}

	includeUnresolved := e.cfg.ResumeUnresolved
	if cmd.Flags().Changed("include-unresolved") {
		includeUnresolved, err = cmd.Flags().GetBool("include-unresolved")
		if err != nil {
			return err
		}
	}

	ctx, cancel := signalContext(cmd.Context(), e.logger)
	defer cancel()

	st, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer e.closeStore(st)

	m := metrics.New()
	p := pipeline.NewReconcile(e.components(st, m), includeUnresolved)
	return e.execute(ctx, cmd.OutOrStdout(), "cleanup", p, m)
}
