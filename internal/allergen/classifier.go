// Package allergen flags menu items whose ingredient text mentions a common
// allergen.
package allergen

import (
	"fmt"
	"sort"
	"strings"
)

// Status is the classification outcome of one item.
type Status string

const (
	Safe      Status = "safe"
	Avoid     Status = "avoid"
	Uncertain Status = "uncertain"
)

// Keywords maps each allergen to the ingredient words that indicate it.
var Keywords = map[string][]string{
	"dairy":     {"milk", "cheese", "butter", "whey", "casein", "yogurt", "cream"},
	"peanut":    {"peanut", "peanuts"},
	"tree_nut":  {"almond", "walnut", "pecan", "cashew", "hazelnut", "pistachio"},
	"egg":       {"egg", "egg yolk", "egg white"},
	"soy":       {"soy", "soybean", "tofu", "soy lecithin"},
	"wheat":     {"wheat", "bran", "semolina", "bulgur", "durum", "gluten"},
	"fish":      {"salmon", "tuna", "anchovy", "cod", "fish"},
	"shellfish": {"shrimp", "crab", "lobster", "crabmeat", "clam", "oyster"},
	"sesame":    {"sesame", "tahini", "sesame seed"},
}

// Result is the classification of one item.
type Result struct {
	Status  Status
	Matched []string
	Reasons []string
}

// Classifier checks ingredients against a fixed set of allergens.
type Classifier struct {
	allergens []string
}

// New returns a Classifier for the named allergens, or for every known
// allergen when none are named.
func New(names ...string) (*Classifier, error) {
	if len(names) == 0 {
		names = Names()
	}

	seen := make(map[string]bool, len(names))
	allergens := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, ok := Keywords[name]; !ok {
			return nil, fmt.Errorf("unknown allergen %q (known: %s)", name, strings.Join(Names(), ", "))
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		allergens = append(allergens, name)
	}
	sort.Strings(allergens)
	return &Classifier{allergens: allergens}, nil
}

// Names returns every known allergen in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(Keywords))
	for name := range Keywords {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Classify reports Uncertain for missing or blank ingredients, Avoid when any
// keyword matches and Safe otherwise. Each allergen is reported once, on its
// first matching keyword.
func (c *Classifier) Classify(ingredients *string) Result {
	if ingredients == nil || strings.TrimSpace(*ingredients) == "" {
		return Result{Status: Uncertain, Reasons: []string{"Ingredients missing or unavailable"}}
	}

	text := strings.ToLower(*ingredients)
	var res Result
	for _, allergen := range c.allergens {
		for _, kw := range Keywords[allergen] {
			if strings.Contains(text, kw) {
				res.Matched = append(res.Matched, allergen)
				res.Reasons = append(res.Reasons, fmt.Sprintf("Found keyword '%s' for allergen %s", kw, allergen))
				break
			}
		}
	}

	if len(res.Matched) > 0 {
		res.Status = Avoid
		return res
	}
	return Result{Status: Safe, Reasons: []string{"No matching allergens found in ingredients"}}
}
