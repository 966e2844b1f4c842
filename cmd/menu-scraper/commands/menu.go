package commands

import (
	"fmt"
	"strings"

	"menu-scraper/internal/menu"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newMenuCmd() *cobra.Command {
	var allergens []string

	cmd := &cobra.Command{
		Use:   "menu <hall> <meal> [date]",
		Short: "Prints a stored menu with allergen classifications.",
		Long:  "Reads one hall/meal/date menu back from the store. The date defaults to today\nin SCRAPE_TIMEZONE and uses the YYYY-MM-DD form.",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			meal, err := menu.ParseMeal(args[1])
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			date := a.Today()
			if len(args) == 3 {
				date = args[2]
			}

			items, err := a.Menu(cmd.Context(), args[0], meal, date, allergens)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintf(out, "No items for %s %s on %s.\n", args[0], meal, date)
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.AppendHeader(table.Row{"Station", "Item", "Status", "Allergens"})
			for _, item := range items {
				station := ""
				if item.Record.Station != nil {
					station = *item.Record.Station
				}
				detail := strings.Join(item.Result.Matched, ", ")
				if detail == "" {
					detail = strings.Join(item.Result.Reasons, "; ")
				}
				t.AppendRow(table.Row{station, item.Record.Name, item.Result.Status, detail})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&allergens, "allergens", nil, "Allergens to check (default: all)")
	return cmd
}
