// Package foodpro reads menu and nutrition label pages from a FoodPro menu portal.
package foodpro

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"menu-scraper/internal/config"

	"github.com/go-resty/resty/v2"
)

const userAgent = "menu-scraper/1.0"

// FetchError reports a page that could not be retrieved: a transport
// failure, a timeout, or a non-2xx status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a menu page whose structure was not recognized.
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.URL, e.Reason)
}

// Client fetches pages from the portal. It is safe for sequential reuse.
type Client struct {
	http    *resty.Client
	menuURL *url.URL
	campus  string
	logger  *slog.Logger
}

// NewClient creates a portal client using the menu address and HTTP timeout from cfg.
func NewClient(cfg *config.Config) (*Client, error) {
	menuURL, err := url.Parse(cfg.MenuURL)
	if err != nil {
		return nil, fmt.Errorf("invalid menu url: %w", err)
	}
	if menuURL.Scheme == "" || menuURL.Host == "" {
		return nil, fmt.Errorf("invalid menu url %q: must be absolute", cfg.MenuURL)
	}

	httpClient := resty.New().
		SetTimeout(cfg.HTTPTimeout).
		SetHeader("User-Agent", userAgent)

	return &Client{
		http:    httpClient,
		menuURL: menuURL,
		campus:  cfg.Campus,
		logger:  slog.Default().With("component", "foodpro"),
	}, nil
}

// get performs a GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, link string) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return nil, &FetchError{URL: link, Err: err}
	}
	if !res.IsSuccess() {
		return nil, &FetchError{URL: link, StatusCode: res.StatusCode()}
	}
	return res.Body(), nil
}
