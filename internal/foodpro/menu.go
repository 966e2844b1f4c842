package foodpro

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"menu-scraper/internal/config"
	"menu-scraper/internal/menu"

	"github.com/PuerkitoBio/goquery"
)

// Page is the parsed content of one hall/meal/date menu page.
type Page struct {
	URL   string
	Items []menu.RawItem
}

// emptyMenuPattern matches the phrases the portal prints instead of a menu
// when a hall serves nothing. Whole phrases only: error pages often mention
// words like "closed" in other senses.
var emptyMenuPattern = regexp.MustCompile(`\b(no data available|no menu (is )?available|(hall|location|dining hall) is closed|closed (today|for the day))\b`)

// MenuURL builds the pickmenu address for a hall, meal and date.
func (c *Client) MenuURL(hall config.Hall, meal menu.Meal, date time.Time) string {
	u := *c.menuURL
	q := u.Query()
	q.Set("sName", c.campus)
	q.Set("locationNum", hall.Code)
	q.Set("locationName", hall.Location)
	q.Set("naFlag", "1")
	q.Set("dtdate", date.Format("01/02/2006"))
	q.Set("mealName", string(meal))
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchMenu retrieves and parses the menu page for a hall, meal and date.
// It returns a *FetchError when the page cannot be retrieved and a
// *ParseError when the page does not look like a menu.
func (c *Client) FetchMenu(ctx context.Context, hall config.Hall, meal menu.Meal, date time.Time) (Page, error) {
	link := c.MenuURL(hall, meal, date)
	c.logger.DebugContext(ctx, "fetch menu", "hall", hall.Name, "meal", meal, "url", link)

	body, err := c.get(ctx, link)
	if err != nil {
		return Page{URL: link}, err
	}

	items, err := ParseMenu(link, body)
	if err != nil {
		return Page{URL: link}, err
	}
	return Page{URL: link, Items: items}, nil
}

// ParseMenu extracts items from a pickmenu page. Each div.menuBox holds h3
// station headers followed by one fieldset per item; the item's label
// anchor carries its name and nutrition label link.
func ParseMenu(pageURL string, body []byte) ([]menu.RawItem, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &ParseError{URL: pageURL, Reason: "invalid page url: " + err.Error()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{URL: pageURL, Reason: "parse html: " + err.Error()}
	}

	boxes := doc.Find("div.menuBox")
	if boxes.Length() == 0 {
		if isEmptyMenu(doc) {
			return nil, nil
		}
		return nil, &ParseError{URL: pageURL, Reason: "no menu container found"}
	}

	var items []menu.RawItem
	boxes.Each(func(_ int, box *goquery.Selection) {
		station := ""
		box.Find("h3, fieldset").Each(func(_ int, s *goquery.Selection) {
			if goquery.NodeName(s) == "h3" {
				station = cleanStation(s.Text())
				return
			}
			if item, ok := parseItem(base, station, s); ok {
				items = append(items, item)
			}
		})
	})
	return items, nil
}

func parseItem(base *url.URL, station string, fs *goquery.Selection) (menu.RawItem, bool) {
	anchor := fs.Find("a[href]").First()

	name := collapseSpace(anchor.Text())
	if name == "" {
		name = collapseSpace(fs.Find("label").First().Text())
	}
	if name == "" {
		return menu.RawItem{}, false
	}

	item := menu.RawItem{Name: name, Station: station}
	if href, ok := anchor.Attr("href"); ok {
		item.IngredientsURL = resolve(base, href)
	}
	return item, true
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

func cleanStation(s string) string {
	return collapseSpace(strings.Trim(collapseSpace(s), "-–— "))
}

func isEmptyMenu(doc *goquery.Document) bool {
	text := strings.ToLower(collapseSpace(doc.Find("body").Text()))
	return emptyMenuPattern.MatchString(text)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
