package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"menu-scraper/internal/allergen"
	"menu-scraper/internal/config"
	"menu-scraper/internal/foodpro"
	"menu-scraper/internal/history"
	"menu-scraper/internal/menu"
	"menu-scraper/internal/notify"
	"menu-scraper/internal/scrape"
	"menu-scraper/internal/supabase"
)

// ErrHistoryDisabled is returned by history operations when no ledger path
// is configured.
var ErrHistoryDisabled = errors.New("run history is disabled; set SCRAPE_HISTORY_DB")

// App holds the application's dependencies.
type App struct {
	cfg     *config.Config
	foodpro *foodpro.Client
	store   *supabase.Client
	history *history.Store
	logger  *slog.Logger
}

// ClassifiedItem is a stored record with its allergen classification.
type ClassifiedItem struct {
	Record menu.Record
	Result allergen.Result
}

// New builds the clients described by cfg. It performs no network I/O; the
// run ledger, when configured, is opened here.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := slog.Default().With("component", "app")

	fp, err := foodpro.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize FoodPro client: %w", err)
	}

	if err := supabase.InspectKey(cfg.ServiceKey).Check(time.Now()); err != nil {
		logger.Warn("SUPABASE_SERVICE_ROLE_KEY looks wrong", "err", err)
	}

	a := &App{
		cfg:     cfg,
		foodpro: fp,
		store:   supabase.NewClient(cfg),
		logger:  logger,
	}

	if cfg.HistoryDBPath != "" {
		a.history, err = history.Open(ctx, cfg.HistoryDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open run history: %w", err)
		}
	}
	return a, nil
}

// Close releases the run ledger.
func (a *App) Close() error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}

// Scrape runs one full scrape. The summary is recorded in the ledger and sent
// to Telegram when those are configured; failures of either are only logged.
// A cancelled run returns its partial summary together with ctx's error.
func (a *App) Scrape(ctx context.Context) (scrape.Summary, error) {
	scraper := scrape.NewScraper(a.cfg, a.foodpro, a.foodpro, a.store)
	summary, err := scraper.Run(ctx)
	cancelled := err != nil

	// Report even when the run was interrupted.
	reportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.HTTPTimeout)
	defer cancel()

	if a.history != nil {
		if _, herr := a.history.Record(reportCtx, summary, cancelled); herr != nil {
			a.logger.Warn("failed to record run", "err", herr)
		}
	}

	if a.cfg.NotifyEnabled() {
		a.notify(summary, cancelled)
	}

	return summary, err
}

func (a *App) notify(summary scrape.Summary, cancelled bool) {
	n, err := notify.NewNotifier(a.cfg)
	if err != nil {
		a.logger.Warn("telegram notifier unavailable", "err", err)
		return
	}
	if err := n.Notify(summary, cancelled); err != nil {
		a.logger.Warn("failed to send run summary", "err", err)
		return
	}
	a.logger.Debug("run summary sent", "bot", n.Username())
}

// Menu reads one stored menu back and classifies each item against the given
// allergens (all known allergens when none are given). The hall may be given
// in any case when it matches a configured hall.
func (a *App) Menu(ctx context.Context, hall string, meal menu.Meal, date string, allergens []string) ([]ClassifiedItem, error) {
	classifier, err := allergen.New(allergens...)
	if err != nil {
		return nil, err
	}
	if _, err := time.Parse(menu.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}

	for _, h := range a.cfg.Halls {
		if strings.EqualFold(h.Name, hall) {
			hall = h.Name
			break
		}
	}

	records, err := a.store.ListMenu(ctx, hall, meal, date)
	if err != nil {
		return nil, err
	}

	items := make([]ClassifiedItem, 0, len(records))
	for _, rec := range records {
		items = append(items, ClassifiedItem{Record: rec, Result: classifier.Classify(rec.Ingredients)})
	}
	return items, nil
}

// Today is the current date in the configured timezone.
func (a *App) Today() string {
	return scrape.Window(time.Now(), a.cfg.Location, 1)[0].Format(menu.DateLayout)
}

// History returns the most recent runs from the ledger.
func (a *App) History(ctx context.Context, limit int) ([]history.Run, error) {
	if a.history == nil {
		return nil, ErrHistoryDisabled
	}
	return a.history.Recent(ctx, limit)
}

// CleanupHistory removes ledger entries older than the given number of days.
func (a *App) CleanupHistory(ctx context.Context, days int) (int64, error) {
	if a.history == nil {
		return 0, ErrHistoryDisabled
	}
	return a.history.Cleanup(ctx, time.Duration(days)*24*time.Hour)
}
