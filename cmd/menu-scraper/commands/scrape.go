package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func runScrape(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.Scrape(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout(), summary)
	if err != nil {
		return fmt.Errorf("scrape interrupted: %w", err)
	}
	return nil
}
