package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/drivercatalog/internal/report"
	"github.com/nao1215/drivercatalog/internal/store"
)

// NewCompressCmd creates the compress command.
func NewCompressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compress [legacy-json]",
		Short: "Convert a legacy JSON catalog into the catalog store",
		Long: `Compress reads the nested JSON catalog written by older releases and
saves it into the configured catalog store.

Raw answers stored by older releases are reclassified on the way: "No
certified downloads" pages become final "not found" entries, "Access
Denied" pages and HTML error pages become retryable failures that
"cleanup" picks up.

Without an argument the legacy_json_path of the configuration is read.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompressCmd,
	}
}

// runCompressCmd executes the compress command.
func runCompressCmd(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	input := e.cfg.LegacyJSONPath
	if len(args) == 1 {
		input = args[0]
	}

	ctx, cancel := signalContext(cmd.Context(), e.logger)
	defer cancel()

	st, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer e.closeStore(st)

	tree, err := store.Migrate(ctx, input, st)
	if err != nil {
		return err
	}
	if tree.IsEmpty() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s holds no combinations, catalog store left unchanged\n", input)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d combination(s) from %s\n\n", tree.Len(), input)
	if _, err := report.NewTableWriter(cmd.OutOrStdout()).Write(tree); err != nil {
		return fmt.Errorf("failed to print summary: %w", err)
	}
	return nil
}
