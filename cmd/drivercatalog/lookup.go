package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/drivercatalog/internal/catalog"
	"github.com/nao1215/drivercatalog/internal/driverpage"
)

// NewLookupCmd creates the lookup command.
func NewLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <dtcid> <psid> <pfid> <osid> <dtid> <lid>",
		Short: "Print the stored download link of one combination",
		Long: `Lookup prints the download link stored for one combination, given the ids
of all six levels (product type, series, product, operating system,
download type, language). The ids can also be given as one slash
separated path.

Failed combinations print their failure marker (not_found, access_denied,
transient_error). Combinations never resolved print not_found.

With --current-version the driver version offered behind the link is
printed as well; it is read from the link itself when it names one, or
from the vendor's download page otherwise.

Examples:
  drivercatalog lookup 1 120 933 57 1 1
  drivercatalog lookup 1/120/933/57/1/1 --current-version`,
		Args: lookupArgs,
		RunE: runLookupCmd,
	}

	cmd.Flags().Bool("current-version", false, "Also print the driver version offered behind the link")

	return cmd
}

// lookupArgs accepts six ids or one slash separated path of six ids.
func lookupArgs(_ *cobra.Command, args []string) error {
	if len(args) == catalog.Depth || (len(args) == 1 && strings.Count(args[0], "/") == catalog.Depth-1) {
		return nil
	}
	return fmt.Errorf("expected %d ids or one slash separated path, got %d argument(s)", catalog.Depth, len(args))
}

// runLookupCmd executes the lookup command.
func runLookupCmd(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	withVersion, err := cmd.Flags().GetBool("current-version")
	if err != nil {
		return err
	}

	if len(args) == 1 {
		args = strings.Split(args[0], "/")
	}
	key, err := catalog.KeyFromPath(args)
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
	link, err := driverpage.DownloadLink(tree, key)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, link)
	if !withVersion {
		return nil
	}

	leaf, err := tree.Leaf(key)
	if err != nil {
		return err
	}
	if leaf.Outcome.Kind != catalog.Resolved {
		return fmt.Errorf("%s has no download link to check (%s)", key, leaf.Outcome.Kind)
	}

	client := driverpage.New(
		driverpage.WithTimeout(e.cfg.RequestTimeout),
		driverpage.WithUserAgent(e.cfg.UserAgent),
		driverpage.WithLogger(e.logger),
	)
	v, err := client.CurrentVersion(ctx, link)
	if err != nil {
		return fmt.Errorf("could not fetch the current version: %w", err)
	}
	fmt.Fprintf(out, "Current version: %s\n", v.Version)
	if v.ReleaseDate != "" {
		fmt.Fprintf(out, "Release date: %s\n", v.ReleaseDate)
	}
	return nil
}
