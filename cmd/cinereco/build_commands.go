package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cinereco/internal/pipeline"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var opts pipeline.BuildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fetch the catalog and write the dataset snapshots",
		Long: `Discover movies, enrich them, then write the machine_learning, site_web and
machine_learning_final snapshots. The final snapshot is reused when its inputs
are unchanged unless --force is given. --offline starts from the existing
machine_learning snapshot instead of the catalog.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			var builderOpts []pipeline.Option
			if !opts.Offline {
				crawler, enricher, err := pipeline.NewCatalogSources(ws.cfg, ws.logger)
				if err != nil {
					return err
				}
				builderOpts = append(builderOpts, pipeline.WithSources(crawler, enricher))
			}
			builder, err := ws.builder(builderOpts...)
			if err != nil {
				return err
			}

			result, err := builder.Build(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s complete\n", result.RunID)
			if result.Reused {
				fmt.Fprintln(out, "Final snapshot up to date; nothing regenerated (use --force to rebuild)")
			}
			rows := make([][]string, 0, len(result.Snapshots))
			for _, info := range result.Snapshots {
				rows = append(rows, []string{info.Name, strconv.Itoa(info.Rows), info.Path})
			}
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"Snapshot", "Rows", "Path"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
			}
			if !opts.Offline {
				c := result.Counts
				fmt.Fprintf(out, "Discovered %d, enriched %d, rejected %d, failed %d\n", c.Discovered, c.Enriched, c.Rejected, c.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "Regenerate the final snapshot even if it is up to date")
	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "Skip the catalog and normalise the existing raw snapshot")
	return cmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a CSV or Parquet dataset as the raw snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			builder, err := ws.builder()
			if err != nil {
				return err
			}
			info, err := builder.Import(cmd.Context(), args[0], format)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rows into %s\n", info.Rows, info.Path)
			fmt.Fprintln(cmd.OutOrStdout(), "Run 'cinereco build --offline' to normalise it")
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Source format: csv | parquet (default: from the file extension)")
	return cmd
}
