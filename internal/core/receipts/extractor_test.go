package receipts

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/FreshKeepCo/inventory-service/internal/core/ai"
	"github.com/FreshKeepCo/inventory-service/internal/core/classifier"
	"github.com/FreshKeepCo/inventory-service/internal/core/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() *taxonomy.Snapshot {
	return taxonomy.NewSnapshot([]taxonomy.CategoryEntry{
		{ID: 1, Name: "Dairy (fresh)", ExternalCode: "DAIRY_FRESH", DefaultShelfLifeDays: 10},
		{ID: 4, Name: "Snacks", ExternalCode: "SNACK", DefaultShelfLifeDays: 90},
	})
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// testModel builds a tiny classifier over the test taxonomy codes.
func testModel(t *testing.T) *classifier.Model {
	t.Helper()
	artifact := map[string]any{
		"vocabulary": map[string]int{"milk": 0, "cheese": 1, "chips": 2, "holder": 3},
		"classes":    []string{"DAIRY_FRESH", "SNACK", taxonomy.OtherCategoryCode},
		"weights": [][]float64{
			{2.0, 2.0, -1.0, -1.0},
			{-1.0, -1.0, 2.0, -1.0},
			{0.0, 0.0, 0.0, 2.0},
		},
		"intercepts": []float64{0.0, 0.0, 0.1},
	}
	data, err := json.Marshal(artifact)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	model, err := classifier.Load(path)
	require.NoError(t, err)
	return model
}

type fakeAI struct {
	items []ai.ExtractedItem
	err   error
}

func (f *fakeAI) ExtractItems(_ context.Context, _ string) ([]ai.ExtractedItem, error) {
	return f.items, f.err
}

func TestRulesExtractionWithClassifier(t *testing.T) {
	extractor := NewExtractor(StrategyRules, testModel(t), nil, testSnapshot(), testLogger())

	text := "FreshMart Downtown Branch\n* Milk 1L 2,500\n* Potato Chips 150g 1,800\nTotal 4,300\nCard Approval 88123456"
	items := extractor.Extract(context.Background(), text)

	require.Len(t, items, 2)

	assert.Equal(t, "Milk 1L", items[0].Name)
	assert.Equal(t, 1, items[0].CategoryID)
	assert.Equal(t, "Dairy (fresh)", items[0].CategoryName)
	assert.Equal(t, 10, items[0].ExpiryDays)
	assert.Equal(t, SourceClassifier, items[0].Source)
	assert.True(t, items[0].ConfidenceHigh)

	assert.Equal(t, "Potato Chips 150g", items[1].Name)
	assert.Equal(t, 4, items[1].CategoryID)
	assert.Equal(t, 150.0, items[1].Quantity)
	assert.Equal(t, "g", items[1].Unit)
}

func TestRulesExtractionDropsFallbackCodedPredictions(t *testing.T) {
	extractor := NewExtractor(StrategyRules, testModel(t), nil, testSnapshot(), testLogger())

	// "Card Holder Wallet" survives filtering thanks to its marker but the
	// classifier routes it to the fallback class, so it is dropped.
	items := extractor.Extract(context.Background(), "* Card Holder Wallet\n* Milk 1L 2,500")

	require.Len(t, items, 1)
	assert.Equal(t, "Milk 1L", items[0].Name)
}

func TestRulesExtractionWithoutClassifierFallsBackToKeywords(t *testing.T) {
	extractor := NewExtractor(StrategyRules, nil, nil, testSnapshot(), testLogger())

	items := extractor.Extract(context.Background(), "* Dairy Drink 1L 2,500\n* Mystery Gadget 9,900")

	require.Len(t, items, 2)
	assert.Equal(t, "Dairy Drink 1L", items[0].Name)
	assert.Equal(t, 1, items[0].CategoryID)
	assert.Equal(t, SourceKeyword, items[0].Source)
	assert.False(t, items[0].ConfidenceHigh)

	// A candidate no keyword matches still comes through, carrying the
	// fallback category. Only classifier predictions reject such lines.
	assert.Equal(t, "Mystery Gadget", items[1].Name)
	assert.Equal(t, taxonomy.OtherCategoryID, items[1].CategoryID)
	assert.False(t, items[1].ConfidenceHigh)
}

func TestKeywordFallbackKeepsOtherCategorizedLines(t *testing.T) {
	extractor := NewExtractor(StrategyRules, nil, nil, testSnapshot(), testLogger())

	items := extractor.Extract(context.Background(), "* Seaweed Rolls 3,000")

	require.Len(t, items, 1)
	assert.Equal(t, "Seaweed Rolls", items[0].Name)
	assert.Equal(t, taxonomy.OtherCategoryID, items[0].CategoryID)
	assert.Equal(t, taxonomy.OtherCategoryName, items[0].CategoryName)
	assert.Equal(t, SourceKeyword, items[0].Source)
	assert.False(t, items[0].ConfidenceHigh)
}

func TestAIExtractionRemapsInvalidCategoryID(t *testing.T) {
	client := &fakeAI{items: []ai.ExtractedItem{
		{Name: "Milk 1L", CategoryID: 1, Quantity: 1, Unit: "piece"},
		{Name: "Frozen Pizza", CategoryID: 999, Quantity: 1, Unit: "piece"},
	}}
	extractor := NewExtractor(StrategyAI, nil, client, testSnapshot(), testLogger())

	items := extractor.Extract(context.Background(), "irrelevant")

	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].CategoryID)
	assert.Equal(t, taxonomy.OtherCategoryID, items[1].CategoryID)
	assert.Equal(t, taxonomy.OtherCategoryName, items[1].CategoryName)
	assert.Equal(t, SourceAI, items[1].Source)
}

func TestAIExtractionFailureYieldsEmptyResult(t *testing.T) {
	client := &fakeAI{err: errors.New("model unavailable")}
	extractor := NewExtractor(StrategyAI, nil, client, testSnapshot(), testLogger())

	items := extractor.Extract(context.Background(), "anything")
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestAIExtractionDropsNamelessItems(t *testing.T) {
	client := &fakeAI{items: []ai.ExtractedItem{
		{Name: "", CategoryID: 1},
		{Name: "Milk 1L", CategoryID: 1, Quantity: 2, Unit: "piece"},
	}}
	extractor := NewExtractor(StrategyAI, nil, client, testSnapshot(), testLogger())

	items := extractor.Extract(context.Background(), "anything")
	require.Len(t, items, 1)
	assert.Equal(t, "Milk 1L", items[0].Name)
	assert.Equal(t, 2.0, items[0].Quantity)
}
