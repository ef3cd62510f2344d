package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newSnapshotsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "List recorded snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			snaps, err := ws.manifest.Snapshots(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(snaps) == 0 {
				fmt.Fprintln(out, "No snapshots recorded")
				return nil
			}
			rows := make([][]string, 0, len(snaps))
			for _, s := range snaps {
				rows = append(rows, []string{
					s.Name,
					strconv.Itoa(s.Rows),
					shortHash(s.Fingerprint),
					shortHash(s.RunID),
					formatWhen(s.WrittenAt),
					yesNo(ws.store.Exists(s.Name)),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Snapshot", "Rows", "Fingerprint", "Run", "Written", "On disk"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			runs, err := ws.manifest.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				duration := "-"
				if r.FinishedAt != nil {
					duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
				}
				rows = append(rows, []string{
					shortHash(r.ID),
					string(r.Status),
					formatWhen(r.StartedAt),
					duration,
					strconv.Itoa(r.Discovered),
					strconv.Itoa(r.Enriched),
					strconv.Itoa(r.Rejected),
					strconv.Itoa(r.Failed),
					yesNo(r.Reused),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Status", "Started", "Duration", "Discovered", "Enriched", "Rejected", "Failed", "Reused"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}

func shortHash(value string) string {
	if value == "" {
		return "-"
	}
	if len(value) > 8 {
		return value[:8]
	}
	return value
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
