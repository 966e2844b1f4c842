package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [--limit N]",
		Short: "Lists recent scrape runs from SCRAPE_HISTORY_DB.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.History(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}
			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.AppendHeader(table.Row{"Started", "Status", "Menus", "Failed Menus", "Items", "No Label", "Upserted", "Failed", "Duration"})
			for _, r := range runs {
				s := r.Summary
				status := "ok"
				if r.Cancelled {
					status = "cancelled"
				}
				t.AppendRow(table.Row{
					s.StartedAt.Local().Format(time.DateTime), status,
					s.Combinations, s.FailedCombinations, s.Items, s.LabelsMissing,
					s.Upserted, s.Failed, s.Duration.Round(time.Millisecond),
				})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of runs to show")

	cmd.AddCommand(newHistoryCleanupCmd())
	return cmd
}

func newHistoryCleanupCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup [--days N]",
		Short: "Removes recorded runs older than N days.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.CleanupHistory(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully removed %d old run records.\n", removed)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "Keep records for the last N days")
	return cmd
}
