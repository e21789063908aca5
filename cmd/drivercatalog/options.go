package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/drivercatalog/internal/catalog"
)

// NewOptionsCmd creates the options command.
func NewOptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options [parent-id...]",
		Short: "List the choices of one dropdown level from the stored catalog",
		Long: `Options lists the {id, label} pairs of the level below the given ids,
the same choices the vendor page offers in its cascading dropdowns.

No argument lists the product types, one id lists the series of that
product type, and so on down to the languages (five ids).

Examples:
  # Product types
  drivercatalog options

  # Operating systems of GeForce RTX 3080 (ids from the previous levels)
  drivercatalog options 1 120 933

  # Label to id mapping as JSON, for a dropdown UI
  drivercatalog options 1 120 --json --by-label`,
		Args: cobra.MaximumNArgs(catalog.Depth - 1),
		RunE: runOptionsCmd,
	}

	cmd.Flags().BoolP("json", "j", false, "Print a JSON object instead of a table")
	cmd.Flags().Bool("by-label", false, "Key the JSON object by label instead of id")

	return cmd
}

// runOptionsCmd executes the options command.
func runOptionsCmd(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	byLabel, err := cmd.Flags().GetBool("by-label")
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context(), e.logger)
	defer cancel()

	st, err := e.openStore(ctx)
	if err != nil {
		return err
	}
	defer e.closeStore(st)

	tree, err := st.Load(ctx)
	if err != nil {
		return err
	}

	level := catalog.Level(len(args))
	options, err := tree.Options(level, args...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		if byLabel {
			options = switchKeys(options)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(options); err != nil {
			return fmt.Errorf("failed to encode options: %w", err)
		}
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(level.String())
	t.AppendHeader(table.Row{"ID", "Label"})
	for _, id := range slices.Sorted(maps.Keys(options)) {
		t.AppendRow(table.Row{id, options[id]})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

// switchKeys turns {id: label} into {label: id}. Labels are unique within
// one dropdown on the vendor page.
func switchKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
