package menu

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DateLayout is the ISO-8601 calendar date format used for Record.Date.
const DateLayout = "2006-01-02"

// Meal is a serving period within a day.
type Meal string

const (
	Breakfast Meal = "Breakfast"
	Lunch     Meal = "Lunch"
	Dinner    Meal = "Dinner"
)

// Meals lists every serving period in the order they are scraped.
var Meals = []Meal{Breakfast, Lunch, Dinner}

// ParseMeal matches a meal name case-insensitively.
func ParseMeal(s string) (Meal, error) {
	for _, m := range Meals {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown meal %q", s)
}

// Record is a single menu item as persisted in the menu_items table.
type Record struct {
	Hall        string  `json:"hall"`
	Meal        Meal    `json:"meal"`
	Date        string  `json:"date"`
	Station     *string `json:"station"`
	Name        string  `json:"name"`
	Ingredients *string `json:"ingredients"`
	SourceURL   string  `json:"source_url"`
	SourceKey   string  `json:"source_key"`
}

// Identity is the merge key of a record in the store.
type Identity struct {
	Hall      string
	Meal      Meal
	Date      string
	SourceKey string
}

// Identity returns the (hall, meal, date, source_key) tuple of r.
func (r Record) Identity() Identity {
	return Identity{Hall: r.Hall, Meal: r.Meal, Date: r.Date, SourceKey: r.SourceKey}
}

// SourceKey derives the stable identity of an item: a version 5 UUID in the
// URL namespace over the ingredient label URL, or over the item name when the
// item has no label.
func SourceKey(ingredientsURL, name string) string {
	seed := strings.TrimSpace(ingredientsURL)
	if seed == "" {
		seed = strings.TrimSpace(name)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}
