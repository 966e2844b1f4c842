package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"menu-scraper/internal/app"
	"menu-scraper/internal/config"

	"github.com/spf13/cobra"
)

// configError marks failures to load configuration so they are reported
// before anything else happens.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "menu-scraper",
		Short:         "Scrapes FoodPro dining hall menus into Supabase.",
		Long:          "With no subcommand, scrapes every configured hall and meal for the date window\nand upserts the items into the menu_items table.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runScrape,
	}
	root.AddCommand(newMenuCmd(), newHistoryCmd())
	return root
}

// Run executes the CLI with args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", cfgErr.err)
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}

// openApp loads configuration, installs the logger and builds the App.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, &configError{err: err}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel})))

	return app.New(cmd.Context(), cfg)
}
