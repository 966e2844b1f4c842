// Package notify posts run summaries to a Telegram chat.
package notify

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"menu-scraper/internal/config"
	"menu-scraper/internal/scrape"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends messages to one chat through the Bot API.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier authorizes the bot token from cfg against the public Bot API.
func NewNotifier(cfg *config.Config) (*Notifier, error) {
	return newNotifier(cfg, tgbotapi.APIEndpoint, &http.Client{Timeout: cfg.HTTPTimeout})
}

func newNotifier(cfg *config.Config, endpoint string, client *http.Client) (*Notifier, error) {
	if !cfg.NotifyEnabled() {
		return nil, fmt.Errorf("telegram notifications are not configured")
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramBotToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	return &Notifier{api: api, chatID: cfg.TelegramChatID}, nil
}

// Username is the bot account the token belongs to.
func (n *Notifier) Username() string {
	return n.api.Self.UserName
}

// Notify sends the formatted summary of a run.
func (n *Notifier) Notify(summary scrape.Summary, cancelled bool) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatSummary(summary, cancelled))
	msg.ParseMode = "Markdown"
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send summary: %w", err)
	}
	return nil
}

// FormatSummary renders a run as a Markdown message.
func FormatSummary(summary scrape.Summary, cancelled bool) string {
	var sb strings.Builder
	if cancelled {
		sb.WriteString("⚠️ *Menu scrape cancelled*\n\n")
	} else {
		sb.WriteString("🍽 *Menu scrape finished*\n\n")
	}

	sb.WriteString(fmt.Sprintf("• Started: %s\n", summary.StartedAt.Format("2006-01-02 15:04 MST")))
	sb.WriteString(fmt.Sprintf("• Duration: %s\n", summary.Duration.Round(time.Second)))
	sb.WriteString(fmt.Sprintf("• Menus: %d (%d failed)\n", summary.Combinations, summary.FailedCombinations))
	sb.WriteString(fmt.Sprintf("• Items: %d (%d without ingredients)\n", summary.Items, summary.LabelsMissing))
	sb.WriteString(fmt.Sprintf("• %s\n", summary))
	if summary.Failed > 0 {
		sb.WriteString(fmt.Sprintf("• ❌ Failed writes: %d\n", summary.Failed))
	}
	return sb.String()
}
