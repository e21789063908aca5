package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/drivercatalog/internal/report"
)

// Export formats.
const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog as a Markdown report or legacy JSON",
		Long: `Export renders the stored catalog.

Formats:
  markdown  a report with outcome totals, a chart and the download links
            grouped by product type (written to stdout by default)
  json      the nested JSON document older consumers read; failed
            combinations carry "not_found", "access_denied" or
            "transient_error" instead of a link (written to the
            legacy_json_path of the configuration by default)

Both formats can be written in one run with --format markdown,json; the
Markdown report then goes to --output and the JSON document to
legacy_json_path.

Examples:
  drivercatalog export > catalog.md
  drivercatalog export --format json
  drivercatalog export --format json -o - | jq .
  drivercatalog export --format markdown,json -o catalog.md`,
		Args: cobra.NoArgs,
		RunE: runExportCmd,
	}

	cmd.Flags().StringP("format", "F", formatMarkdown,
		"Output format: markdown, json, or both as \"markdown,json\"")
	cmd.Flags().StringP("output", "o", "",
		"Write to the given file path, \"-\" for stdout (creates directories if needed)")
	cmd.Flags().Bool("no-drivers", false, "Omit the download link tables from the Markdown report")
	cmd.Flags().Bool("compact", false, "Write JSON without indentation")

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	noDrivers, err := cmd.Flags().GetBool("no-drivers")
	if err != nil {
		return err
	}
	compact, err := cmd.Flags().GetBool("compact")
	if err != nil {
		return err
	}

	formats, err := parseFormats(format)
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

	var (
		writers []report.Writer
		written []string
		closers []func() error
	)
	defer func() {
		for _, c := range closers {
			if err := c(); err != nil {
				e.logger.Error("failed to close output file", "error", err)
			}
		}
	}()
	for _, f := range formats {
		path := outputPath
		if f == formatJSON && (path == "" || len(formats) > 1) {
			path = e.cfg.LegacyJSONPath
		}
		output, closeOutput, err := createOutput(path, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		closers = append(closers, closeOutput)
		if path != "" && path != "-" {
			written = append(written, f+" to "+path)
		}

		if f == formatJSON {
			var opts []report.JSONWriterOption
			if !compact {
				opts = append(opts, report.WithPrettyPrint())
			}
			writers = append(writers, report.NewJSONWriter(output, opts...))
		} else {
			writers = append(writers, report.NewMarkdownWriter(output, report.WithDrivers(!noDrivers)))
		}
	}

	n, err := report.NewMultiWriter(writers...).Write(tree)
	if err != nil {
		return err
	}
	switch {
	case len(written) == 0:
	case len(formats) == 1:
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes of %s\n", n, written[0])
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes in total, %s\n", n, strings.Join(written, ", "))
	}
	return nil
}

// parseFormats splits a comma separated format list, dropping duplicates.
func parseFormats(value string) ([]string, error) {
	var formats []string
	for _, f := range strings.Split(value, ",") {
		f = strings.TrimSpace(f)
		switch f {
		case formatMarkdown, formatJSON:
		default:
			return nil, fmt.Errorf("unknown export format %q (use %s, %s or both)", f, formatMarkdown, formatJSON)
		}
		if !slices.Contains(formats, f) {
			formats = append(formats, f)
		}
	}
	return formats, nil
}
