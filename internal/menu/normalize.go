package menu

import "strings"

// RawItem is an item as extracted from a menu page, before normalization.
type RawItem struct {
	Name           string
	Station        string
	IngredientsURL string
}

// Context is the page an item was found on.
type Context struct {
	Hall      string
	Meal      Meal
	Date      string
	SourceURL string
}

// Normalize maps a raw item and its ingredient text onto a Record.
// It never fails: blank station or ingredients become null.
func Normalize(c Context, item RawItem, ingredients *string) Record {
	return Record{
		Hall:        c.Hall,
		Meal:        c.Meal,
		Date:        c.Date,
		Station:     nullable(item.Station),
		Name:        strings.TrimSpace(item.Name),
		Ingredients: nullablePtr(ingredients),
		SourceURL:   c.SourceURL,
		SourceKey:   SourceKey(item.IngredientsURL, item.Name),
	}
}

// Dedupe collapses records sharing an identity, keeping the last occurrence
// in the position of the first.
func Dedupe(records []Record) []Record {
	index := make(map[Identity]int, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.Identity()]; ok {
			out[i] = r
			continue
		}
		index[r.Identity()] = len(out)
		out = append(out, r)
	}
	return out
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func nullablePtr(s *string) *string {
	if s == nil {
		return nil
	}
	return nullable(*s)
}
