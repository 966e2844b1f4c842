package scrape

import (
	"context"
	"fmt"
	"testing"
	"time"

	"menu-scraper/internal/config"
	"menu-scraper/internal/foodpro"
	"menu-scraper/internal/menu"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type menuCall struct {
	Hall string
	Meal menu.Meal
	Date string
}

type MockMenuSource struct {
	Calls []menuCall
	// Pages maps "hall/meal" to the items served for every date.
	Pages map[string][]menu.RawItem
	// Broken maps "hall/meal" to the error returned instead of a page.
	Broken map[string]error
}

func (m *MockMenuSource) FetchMenu(ctx context.Context, hall config.Hall, meal menu.Meal, date time.Time) (foodpro.Page, error) {
	m.Calls = append(m.Calls, menuCall{Hall: hall.Name, Meal: meal, Date: date.Format(menu.DateLayout)})
	key := hall.Name + "/" + string(meal)
	url := fmt.Sprintf("https://menus.test/%s/%s/%s", hall.Code, meal, date.Format(menu.DateLayout))
	if err, ok := m.Broken[key]; ok {
		return foodpro.Page{URL: url}, err
	}
	return foodpro.Page{URL: url, Items: m.Pages[key]}, nil
}

type MockLabelSource struct {
	Calls []string
	Texts map[string]string
}

func (m *MockLabelSource) FetchLabel(ctx context.Context, link string) foodpro.Label {
	m.Calls = append(m.Calls, link)
	if link == "" {
		return foodpro.Label{Reason: foodpro.ErrNoLabel}
	}
	if text, ok := m.Texts[link]; ok {
		return foodpro.Label{Text: text, Available: true}
	}
	return foodpro.Label{Reason: &foodpro.FetchError{URL: link, StatusCode: 404}}
}

type MockWriter struct {
	Batches     [][]menu.Record
	ShouldError func(batch []menu.Record) bool
	OnUpsert    func()
}

func (m *MockWriter) Upsert(ctx context.Context, records []menu.Record) ([]menu.Record, error) {
	if m.OnUpsert != nil {
		m.OnUpsert()
	}
	if m.ShouldError != nil && m.ShouldError(records) {
		return nil, fmt.Errorf("mock upsert error")
	}
	m.Batches = append(m.Batches, records)
	return records, nil
}

func (m *MockWriter) Records() []menu.Record {
	var out []menu.Record
	for _, b := range m.Batches {
		out = append(out, b...)
	}
	return out
}

// --- Helpers ---

var fixedNow = time.Date(2026, 10, 16, 3, 30, 0, 0, time.UTC)

func testConfig(days, batchSize int) *config.Config {
	return &config.Config{
		Halls: []config.Hall{
			{Name: "Atrium", Code: "13", Location: "The Atrium"},
			{Name: "Busch", Code: "04", Location: "Busch Dining Hall"},
		},
		Days:      days,
		BatchSize: batchSize,
		Location:  time.UTC,
	}
}

func newTestScraper(cfg *config.Config, menus MenuSource, labels LabelSource, writer Writer) *Scraper {
	s := NewScraper(cfg, menus, labels, writer)
	s.now = func() time.Time { return fixedNow }
	return s
}

// --- Tests ---

func TestWindow(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 03:30 UTC on the 16th is still the 15th in New York.
	dates := Window(fixedNow, ny, 3)
	require.Len(t, dates, 3)
	assert.Equal(t, "2026-10-15", dates[0].Format(menu.DateLayout))
	assert.Equal(t, "2026-10-16", dates[1].Format(menu.DateLayout))
	assert.Equal(t, "2026-10-17", dates[2].Format(menu.DateLayout))
	assert.Equal(t, 0, dates[0].Hour())

	assert.Empty(t, Window(fixedNow, time.UTC, 0))
}

func TestRun_AttemptsEveryCombination(t *testing.T) {
	menus := &MockMenuSource{
		Pages: map[string][]menu.RawItem{
			"Atrium/Lunch": {{Name: "Burger", Station: "Grill", IngredientsURL: "https://labels.test/burger"}},
		},
		Broken: map[string]error{
			"Atrium/Breakfast": &foodpro.ParseError{URL: "x", Reason: "no menu container found"},
			"Busch/Dinner":     &foodpro.FetchError{URL: "y", StatusCode: 503},
		},
	}
	labels := &MockLabelSource{Texts: map[string]string{"https://labels.test/burger": "Beef, Bun"}}
	writer := &MockWriter{}

	summary, err := newTestScraper(testConfig(2, 1), menus, labels, writer).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12, summary.Combinations)
	assert.Len(t, menus.Calls, 12)
	assert.Equal(t, 4, summary.FailedCombinations, "two broken hall/meal pairs over two days")
	assert.Equal(t, 2, summary.Items)
	assert.Equal(t, 2, summary.Upserted)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, "Inserted/updated: 2", summary.String())

	assert.Equal(t, menuCall{Hall: "Atrium", Meal: menu.Breakfast, Date: "2026-10-16"}, menus.Calls[0])
	assert.Equal(t, menuCall{Hall: "Atrium", Meal: menu.Breakfast, Date: "2026-10-17"}, menus.Calls[1])
	assert.Equal(t, menuCall{Hall: "Busch", Meal: menu.Dinner, Date: "2026-10-17"}, menus.Calls[11])

	records := writer.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "2026-10-16", records[0].Date)
	assert.Equal(t, "2026-10-17", records[1].Date)
	assert.Equal(t, records[0].SourceKey, records[1].SourceKey)
	assert.Equal(t, "Beef, Bun", *records[0].Ingredients)
	assert.Equal(t, "https://menus.test/13/Lunch/2026-10-16", records[0].SourceURL)
}

func TestRun_EmptyMenuMakesNoUpserts(t *testing.T) {
	menus := &MockMenuSource{}
	labels := &MockLabelSource{}
	writer := &MockWriter{}

	summary, err := newTestScraper(testConfig(1, 1), menus, labels, writer).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Combinations)
	assert.Zero(t, summary.FailedCombinations)
	assert.Empty(t, writer.Batches)
	assert.Empty(t, labels.Calls)
	assert.Equal(t, "Inserted/updated: 0", summary.String())
}

func TestRun_LabelFailuresDegradeToNull(t *testing.T) {
	menus := &MockMenuSource{Pages: map[string][]menu.RawItem{
		"Busch/Breakfast": {
			{Name: "Pancakes", IngredientsURL: "https://labels.test/missing"},
			{Name: "Fruit Cup"},
		},
	}}
	labels := &MockLabelSource{}
	writer := &MockWriter{}

	summary, err := newTestScraper(testConfig(1, 1), menus, labels, writer).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Upserted)
	assert.Equal(t, 2, summary.LabelsMissing)
	for _, rec := range writer.Records() {
		assert.Nil(t, rec.Ingredients, rec.Name)
		assert.Nil(t, rec.Station, rec.Name)
	}
	assert.Equal(t, []string{"https://labels.test/missing", ""}, labels.Calls)
}

func TestRun_UpsertFailureContinues(t *testing.T) {
	menus := &MockMenuSource{Pages: map[string][]menu.RawItem{
		"Atrium/Dinner": {{Name: "Soup"}, {Name: "Bread"}, {Name: "Salad"}},
	}}
	writer := &MockWriter{ShouldError: func(batch []menu.Record) bool { return batch[0].Name == "Bread" }}

	summary, err := newTestScraper(testConfig(1, 1), menus, &MockLabelSource{}, writer).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Upserted)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, writer.Batches, 2)
	assert.Equal(t, "Soup", writer.Batches[0][0].Name)
	assert.Equal(t, "Salad", writer.Batches[1][0].Name)
}

func TestRun_Batches(t *testing.T) {
	menus := &MockMenuSource{Pages: map[string][]menu.RawItem{
		"Atrium/Lunch": {{Name: "A"}, {Name: "B"}, {Name: "A"}, {Name: "C"}, {Name: "D"}},
	}}
	writer := &MockWriter{}

	summary, err := newTestScraper(testConfig(1, 2), menus, &MockLabelSource{}, writer).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, writer.Batches, 3)
	assert.Len(t, writer.Batches[0], 2)
	assert.Len(t, writer.Batches[1], 2)
	assert.Len(t, writer.Batches[2], 1)
	assert.Equal(t, 4, summary.Upserted, "A is counted once")
}

func TestRun_DuplicateInBatchMerges(t *testing.T) {
	menus := &MockMenuSource{Pages: map[string][]menu.RawItem{
		"Atrium/Lunch": {{Name: "Pizza", Station: "Oven"}, {Name: "Pizza", Station: "Slice Bar"}},
	}}
	writer := &MockWriter{}

	summary, err := newTestScraper(testConfig(1, 10), menus, &MockLabelSource{}, writer).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, writer.Batches, 1)
	require.Len(t, writer.Batches[0], 1)
	assert.Equal(t, "Slice Bar", *writer.Batches[0][0].Station)
	assert.Equal(t, 1, summary.Upserted)
	assert.Equal(t, 2, summary.Items)
}

func TestRun_UpsertedCountIgnoresBatchSize(t *testing.T) {
	for _, batchSize := range []int{1, 2, 10} {
		t.Run(fmt.Sprintf("BatchSize%d", batchSize), func(t *testing.T) {
			menus := &MockMenuSource{Pages: map[string][]menu.RawItem{
				"Busch/Dinner": {{Name: "Pasta", Station: "Italian"}, {Name: "Salad"}, {Name: "Pasta", Station: "Pasta Bar"}},
			}}
			writer := &MockWriter{}

			summary, err := newTestScraper(testConfig(1, batchSize), menus, &MockLabelSource{}, writer).Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, 3, summary.Items)
			assert.Equal(t, 2, summary.Upserted)
			assert.Zero(t, summary.Failed)
		})
	}
}

func TestRun_DelaysBetweenUpserts(t *testing.T) {
	menus := &MockMenuSource{Pages: map[string][]menu.RawItem{
		"Atrium/Lunch": {{Name: "A"}, {Name: "B"}, {Name: "C"}},
	}}
	cfg := testConfig(1, 1)
	cfg.Halls = cfg.Halls[:1]
	cfg.UpsertDelay = 30 * time.Millisecond

	var calls []time.Time
	writer := &MockWriter{OnUpsert: func() { calls = append(calls, time.Now()) }}

	_, err := newTestScraper(cfg, menus, &MockLabelSource{}, writer).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, calls, 3)
	assert.GreaterOrEqual(t, calls[1].Sub(calls[0]), 25*time.Millisecond)
	assert.GreaterOrEqual(t, calls[2].Sub(calls[1]), 25*time.Millisecond)
}

func TestRun_Cancelled(t *testing.T) {
	menus := &MockMenuSource{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := newTestScraper(testConfig(2, 1), menus, &MockLabelSource{}, &MockWriter{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Combinations)
	assert.Empty(t, menus.Calls)
}
