// Package scrape drives a full menu scrape: every configured hall, meal and
// date in the window is fetched, normalized and written to the store.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"menu-scraper/internal/config"
	"menu-scraper/internal/foodpro"
	"menu-scraper/internal/menu"

	"golang.org/x/time/rate"
)

// MenuSource fetches the items of one menu page.
type MenuSource interface {
	FetchMenu(ctx context.Context, hall config.Hall, meal menu.Meal, date time.Time) (foodpro.Page, error)
}

// LabelSource fetches the ingredient label of one item.
type LabelSource interface {
	FetchLabel(ctx context.Context, link string) foodpro.Label
}

// Writer persists a batch of records.
type Writer interface {
	Upsert(ctx context.Context, records []menu.Record) ([]menu.Record, error)
}

// Summary counts the outcome of a run.
type Summary struct {
	StartedAt          time.Time
	Duration           time.Duration
	Combinations       int
	FailedCombinations int
	Items              int
	LabelsMissing      int
	Upserted           int
	Failed             int
}

func (s Summary) String() string {
	return fmt.Sprintf("Inserted/updated: %d", s.Upserted)
}

// Scraper runs the hall × meal × date iteration.
type Scraper struct {
	menus  MenuSource
	labels LabelSource
	writer Writer

	halls     []config.Hall
	meals     []menu.Meal
	days      int
	batchSize int
	location  *time.Location
	limiter   *rate.Limiter
	now       func() time.Time
	logger    *slog.Logger
}

// NewScraper creates a Scraper over the halls, window, batch size and upsert
// delay from cfg.
func NewScraper(cfg *config.Config, menus MenuSource, labels LabelSource, writer Writer) *Scraper {
	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	return &Scraper{
		menus:     menus,
		labels:    labels,
		writer:    writer,
		halls:     cfg.Halls,
		meals:     menu.Meals,
		days:      cfg.Days,
		batchSize: batchSize,
		location:  location,
		limiter:   rate.NewLimiter(rate.Every(cfg.UpsertDelay), 1),
		now:       time.Now,
		logger:    slog.Default().With("component", "scrape"),
	}
}

// Window returns today in loc and the following days-1 dates, each at midnight.
func Window(now time.Time, loc *time.Location, days int) []time.Time {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	dates := make([]time.Time, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, today.AddDate(0, 0, i))
	}
	return dates
}

// Run attempts every combination once. Per-page and per-item failures are
// logged and counted; only cancellation of ctx ends the run early, in which
// case the partial summary is returned with ctx's error.
func (s *Scraper) Run(ctx context.Context) (Summary, error) {
	summary := Summary{StartedAt: s.now()}
	dates := Window(summary.StartedAt, s.location, s.days)

	s.logger.InfoContext(ctx, "scrape started",
		"halls", len(s.halls), "meals", len(s.meals), "days", len(dates))

	for _, hall := range s.halls {
		for _, meal := range s.meals {
			for _, date := range dates {
				if err := ctx.Err(); err != nil {
					summary.Duration = time.Since(summary.StartedAt)
					return summary, err
				}
				summary.Combinations++
				if err := s.scrapeMenu(ctx, hall, meal, date, &summary); err != nil {
					summary.Duration = time.Since(summary.StartedAt)
					return summary, err
				}
			}
		}
	}

	summary.Duration = time.Since(summary.StartedAt)
	s.logger.InfoContext(ctx, "scrape finished",
		"combinations", summary.Combinations,
		"failed_combinations", summary.FailedCombinations,
		"items", summary.Items,
		"upserted", summary.Upserted,
		"failed", summary.Failed,
		"duration", summary.Duration)
	return summary, nil
}

// scrapeMenu processes one hall/meal/date. It returns an error only when ctx
// is done.
func (s *Scraper) scrapeMenu(ctx context.Context, hall config.Hall, meal menu.Meal, date time.Time, summary *Summary) error {
	day := date.Format(menu.DateLayout)
	logger := s.logger.With("hall", hall.Name, "meal", meal, "date", day)

	page, err := s.menus.FetchMenu(ctx, hall, meal, date)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		summary.FailedCombinations++
		var parseErr *foodpro.ParseError
		if errors.As(err, &parseErr) {
			logger.WarnContext(ctx, "skipping unparseable menu page", "err", err)
		} else {
			logger.WarnContext(ctx, "skipping unreachable menu page", "err", err)
		}
		return nil
	}

	if len(page.Items) == 0 {
		logger.InfoContext(ctx, "menu has no items", "url", page.URL)
		return nil
	}
	logger.DebugContext(ctx, "menu parsed", "items", len(page.Items), "url", page.URL)

	pageCtx := menu.Context{Hall: hall.Name, Meal: meal, Date: day, SourceURL: page.URL}
	written := make(map[menu.Identity]bool, len(page.Items))
	batch := make([]menu.Record, 0, s.batchSize)
	for _, item := range page.Items {
		summary.Items++

		label := s.labels.FetchLabel(ctx, item.IngredientsURL)
		if !label.Available {
			summary.LabelsMissing++
			if !errors.Is(label.Reason, foodpro.ErrNoLabel) {
				logger.DebugContext(ctx, "ingredients unavailable", "item", item.Name, "reason", label.Reason)
			}
		}

		batch = append(batch, menu.Normalize(pageCtx, item, label.Ingredients()))
		if len(batch) >= s.batchSize {
			if err := s.flush(ctx, logger, batch, written, summary); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	return s.flush(ctx, logger, batch, written, summary)
}

// flush writes one batch after waiting for the upsert limiter. Upserted and
// Failed count distinct identities: a record already written for this page
// is merged again but not counted twice, whatever the batch size.
func (s *Scraper) flush(ctx context.Context, logger *slog.Logger, batch []menu.Record, written map[menu.Identity]bool, summary *Summary) error {
	batch = menu.Dedupe(batch)
	if len(batch) == 0 {
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	if _, err := s.writer.Upsert(ctx, batch); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for _, rec := range batch {
			if !written[rec.Identity()] {
				summary.Failed++
			}
		}
		logger.WarnContext(ctx, "upsert failed", "records", len(batch), "first", batch[0].Name, "err", err)
		return nil
	}

	for _, rec := range batch {
		if !written[rec.Identity()] {
			written[rec.Identity()] = true
			summary.Upserted++
		}
	}
	return nil
}
