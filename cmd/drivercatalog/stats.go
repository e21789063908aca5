package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/drivercatalog/internal/report"
	"github.com/nao1215/drivercatalog/internal/store"
)

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the outcome tally of the stored catalog",
		Long: `Stats prints how many combinations the stored catalog holds, split by
outcome and by product type.

With the sqlite backend the retained snapshots are listed as well.`,
		Args: cobra.NoArgs,
		RunE: runStatsCmd,
	}
}

// runStatsCmd executes the stats command.
func runStatsCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
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

	out := cmd.OutOrStdout()
	if _, err := report.NewTableWriter(out).Write(tree); err != nil {
		return fmt.Errorf("failed to print summary: %w", err)
	}

	if db, ok := st.(*store.SQLite); ok {
		snapshots, err := db.Snapshots(ctx)
		if err != nil {
			return err
		}
		writeSnapshots(out, snapshots)
	}
	return nil
}

// writeSnapshots prints the snapshot list, newest first.
func writeSnapshots(out io.Writer, snapshots []store.Snapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("Snapshots")
	t.AppendHeader(table.Row{"ID", "Created", "Combinations", "Bytes", "SHA3-256"})
	for _, s := range snapshots {
		digest := s.Digest
		if len(digest) > 12 {
			digest = digest[:12]
		}
		t.AppendRow(table.Row{s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04:05"), s.Leaves, s.Size, digest})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
