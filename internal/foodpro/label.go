package foodpro

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoLabel is the Reason of a Label for an item without a label link.
var ErrNoLabel = errors.New("item has no label link")

// ErrEmptyLabel is the Reason of a Label whose page held no text.
var ErrEmptyLabel = errors.New("label page has no text")

// Label is the outcome of a label fetch. Available is false when the
// ingredients could not be read; Reason then says why.
type Label struct {
	Text      string
	Available bool
	Reason    error
}

// Ingredients returns the label text, or nil when the label is unavailable.
func (l Label) Ingredients() *string {
	if !l.Available {
		return nil
	}
	text := l.Text
	return &text
}

var markupChars = strings.NewReplacer("<", " ", ">", " ")

// FetchLabel retrieves a nutrition label page and extracts its ingredient
// text. It never returns an error: every failure yields an unavailable Label.
func (c *Client) FetchLabel(ctx context.Context, link string) Label {
	if strings.TrimSpace(link) == "" {
		return Label{Reason: ErrNoLabel}
	}

	body, err := c.get(ctx, link)
	if err != nil {
		c.logger.DebugContext(ctx, "label unavailable", "url", link, "err", err)
		return Label{Reason: err}
	}

	text, err := ExtractLabelText(body)
	if err != nil {
		c.logger.DebugContext(ctx, "label unreadable", "url", link, "err", err)
		return Label{Reason: err}
	}
	return Label{Text: text, Available: true}
}

// ExtractLabelText returns the whitespace-normalized text of a label page,
// preferring the ingredients block when the page has one.
func ExtractLabelText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, footer, iframe, noscript").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	text := cleanText(doc.Find(".labelingredientsValue").Text())
	if text == "" {
		text = cleanText(doc.Find("body").Text())
	}
	if text == "" {
		return "", ErrEmptyLabel
	}
	return text, nil
}

func cleanText(s string) string {
	return collapseSpace(markupChars.Replace(s))
}
