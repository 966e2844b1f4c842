// Package supabase writes menu records to a Supabase project through its
// PostgREST interface.
package supabase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"menu-scraper/internal/config"
	"menu-scraper/internal/menu"

	"github.com/go-resty/resty/v2"
)

const (
	// Table is the PostgREST resource holding menu records.
	Table = "menu_items"

	// ConflictColumns is the unique key the store merges on.
	ConflictColumns = "hall,meal,date,source_key"

	preferMerge = "resolution=merge-duplicates,return=representation"
)

// UpsertError reports a write the store rejected with a non-2xx status.
type UpsertError struct {
	StatusCode int
	Body       string
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("upsert rejected: status %d, body: %s", e.StatusCode, e.Body)
}

// QueryError reports a read the store rejected with a non-2xx status.
type QueryError struct {
	StatusCode int
	Body       string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query rejected: status %d, body: %s", e.StatusCode, e.Body)
}

// Client is the PostgREST client for the menu_items table.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// NewClient creates a client authenticated with the service key from cfg.
func NewClient(cfg *config.Config) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.SupabaseURL+"/rest/v1").
		SetTimeout(cfg.HTTPTimeout).
		SetHeader("apikey", cfg.ServiceKey).
		SetAuthToken(cfg.ServiceKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:   httpClient,
		logger: slog.Default().With("component", "supabase"),
	}
}

// Upsert writes records, overwriting any stored record with the same
// (hall, meal, date, source_key). Records sharing that key within the batch
// are collapsed first, the last one winning. It returns the stored rows.
func (c *Client) Upsert(ctx context.Context, records []menu.Record) ([]menu.Record, error) {
	records = menu.Dedupe(records)
	if len(records) == 0 {
		return nil, nil
	}

	var stored []menu.Record
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Prefer", preferMerge).
		SetQueryParam("on_conflict", ConflictColumns).
		SetBody(records).
		SetResult(&stored).
		Post("/" + Table)
	if err != nil {
		return nil, fmt.Errorf("failed to execute upsert: %w", err)
	}
	if !res.IsSuccess() {
		return nil, &UpsertError{StatusCode: res.StatusCode(), Body: strings.TrimSpace(res.String())}
	}

	c.logger.DebugContext(ctx, "upserted", "sent", len(records), "stored", len(stored))
	return stored, nil
}

// ListMenu reads the stored records for one hall, meal and date.
func (c *Client) ListMenu(ctx context.Context, hall string, meal menu.Meal, date string) ([]menu.Record, error) {
	var records []menu.Record
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"hall":  "eq." + hall,
			"meal":  "eq." + string(meal),
			"date":  "eq." + date,
			"order": "station.asc.nullslast,name.asc",
		}).
		SetResult(&records).
		Get("/" + Table)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	if !res.IsSuccess() {
		return nil, &QueryError{StatusCode: res.StatusCode(), Body: strings.TrimSpace(res.String())}
	}
	return records, nil
}
