package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	DefaultMenuURL  = "https://menuportal23.dining.rutgers.edu/foodpronet/pickmenu.aspx"
	DefaultCampus   = "Rutgers University Dining"
	DefaultTimezone = "America/New_York"
)

// Config holds the configuration for the scraper.
type Config struct {
	SupabaseURL string
	ServiceKey  string

	// FoodPro portal
	MenuURL string
	Campus  string
	Halls   []Hall

	Days        int
	BatchSize   int
	UpsertDelay time.Duration
	HTTPTimeout time.Duration
	Location    *time.Location

	HistoryDBPath string

	// Telegram Config (optional run summary)
	TelegramBotToken string
	TelegramChatID   int64

	LogLevel slog.Level
}

// MissingError reports a required environment variable that is not set.
type MissingError struct {
	Name string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s environment variable not set", e.Name)
}

// InvalidError reports an environment variable whose value cannot be used.
type InvalidError struct {
	Name  string
	Value string
	Err   error
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Name, e.Value, e.Err)
}

func (e *InvalidError) Unwrap() error { return e.Err }

// NewFromEnv creates a new Config object from environment variables.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment take precedence.
func NewFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	supabaseURL := strings.TrimRight(get("SUPABASE_URL"), "/")
	if supabaseURL == "" {
		return nil, &MissingError{Name: "SUPABASE_URL"}
	}

	serviceKey := get("SUPABASE_SERVICE_ROLE_KEY")
	if serviceKey == "" {
		return nil, &MissingError{Name: "SUPABASE_SERVICE_ROLE_KEY"}
	}

	cfg := &Config{
		SupabaseURL:      supabaseURL,
		ServiceKey:       serviceKey,
		MenuURL:          orDefault(get("FOODPRO_MENU_URL"), DefaultMenuURL),
		Campus:           orDefault(get("FOODPRO_CAMPUS"), DefaultCampus),
		HistoryDBPath:    get("SCRAPE_HISTORY_DB"),
		TelegramBotToken: get("TELEGRAM_BOT_TOKEN"),
	}

	var err error
	if cfg.Days, err = positiveInt("SCRAPE_DAYS", get("SCRAPE_DAYS"), 2); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = positiveInt("UPSERT_BATCH_SIZE", get("UPSERT_BATCH_SIZE"), 1); err != nil {
		return nil, err
	}
	if cfg.UpsertDelay, err = duration("UPSERT_DELAY", get("UPSERT_DELAY"), 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = duration("HTTP_TIMEOUT", get("HTTP_TIMEOUT"), 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout == 0 {
		return nil, &InvalidError{Name: "HTTP_TIMEOUT", Value: get("HTTP_TIMEOUT"), Err: fmt.Errorf("must be greater than zero")}
	}

	tz := orDefault(get("SCRAPE_TIMEZONE"), DefaultTimezone)
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, &InvalidError{Name: "SCRAPE_TIMEZONE", Value: tz, Err: err}
	}

	if chatID := get("TELEGRAM_CHAT_ID"); chatID != "" {
		if cfg.TelegramChatID, err = strconv.ParseInt(chatID, 10, 64); err != nil {
			return nil, &InvalidError{Name: "TELEGRAM_CHAT_ID", Value: chatID, Err: err}
		}
	}

	if level := get("LOG_LEVEL"); level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			return nil, &InvalidError{Name: "LOG_LEVEL", Value: level, Err: err}
		}
	}

	hallsFile := get("FOODPRO_HALLS_FILE")
	if cfg.Halls, err = LoadHalls(hallsFile); err != nil {
		return nil, &InvalidError{Name: "FOODPRO_HALLS_FILE", Value: hallsFile, Err: err}
	}

	return cfg, nil
}

// NotifyEnabled reports whether a Telegram run summary should be sent.
func (c *Config) NotifyEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func positiveInt(name, raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &InvalidError{Name: name, Value: raw, Err: err}
	}
	if n < 1 {
		return 0, &InvalidError{Name: name, Value: raw, Err: fmt.Errorf("must be at least 1")}
	}
	return n, nil
}

func duration(name, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &InvalidError{Name: name, Value: raw, Err: err}
	}
	if d < 0 {
		return 0, &InvalidError{Name: name, Value: raw, Err: fmt.Errorf("must not be negative")}
	}
	return d, nil
}
