package ai

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/FreshKeepCo/inventory-service/config"
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

func TestParseItemsArray(t *testing.T) {
	items, err := parseItemsArray("```json\n[{\"name\": \"Milk 1L\", \"category_id\": 1, \"quantity\": 2, \"unit\": \"piece\"}]\n```")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Milk 1L", items[0].Name)
	assert.Equal(t, 1, items[0].CategoryID)
	assert.Equal(t, 2.0, items[0].Quantity)
}

func TestParseItemsArrayAppliesDefaults(t *testing.T) {
	items, err := parseItemsArray(`[{"name": "Chips", "category_id": 4}]`)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1.0, items[0].Quantity)
	assert.Equal(t, "piece", items[0].Unit)
}

func TestParseItemsArrayRejectsNonArrayOutput(t *testing.T) {
	_, err := parseItemsArray("I could not find any items on this receipt.")
	assert.Error(t, err)
}

func TestBuildExtractionPromptEnumeratesTaxonomy(t *testing.T) {
	prompt := buildExtractionPrompt(testSnapshot(), "Milk 1L 2,500")

	assert.Contains(t, prompt, "1: Dairy (fresh)")
	assert.Contains(t, prompt, "4: Snacks")
	assert.Contains(t, prompt, "Milk 1L 2,500")
	assert.Contains(t, prompt, "Exclude store names")
}

func TestExtractItemsChatCompletions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "[{\"name\": \"Eggs 10pk\", \"category_id\": 1, \"quantity\": 1, \"unit\": \"pack\"}]"}}],
			"usage": {"total_tokens": 42}
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(config.OpenAIConfig{
		APIKey:      "test-key",
		Model:       "gpt-4o-mini",
		BaseURL:     server.URL,
		MaxTokens:   600,
		Temperature: 0.1,
	}, testSnapshot(), slog.New(slog.DiscardHandler))

	items, err := client.ExtractItems(context.Background(), "Eggs 10pk 5,900")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Eggs 10pk", items[0].Name)
	assert.Equal(t, "pack", items[0].Unit)
}

func TestExtractItemsResponsesAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"output": [{
				"type": "message",
				"role": "assistant",
				"content": [{"type": "output_text", "text": "[{\"name\": \"Milk 1L\", \"category_id\": 1, \"quantity\": 1, \"unit\": \"piece\"}]"}]
			}],
			"usage": {"total_tokens": 55}
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(config.OpenAIConfig{
		APIKey:  "test-key",
		Model:   "gpt-5-nano",
		BaseURL: server.URL,
	}, testSnapshot(), slog.New(slog.DiscardHandler))

	items, err := client.ExtractItems(context.Background(), "Milk 1L 2,500")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Milk 1L", items[0].Name)
}

func TestExtractItemsUnparsableOutputIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "no items"}}],
			"usage": {"total_tokens": 3}
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(config.OpenAIConfig{
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		BaseURL: server.URL,
	}, testSnapshot(), slog.New(slog.DiscardHandler))

	_, err := client.ExtractItems(context.Background(), "Milk 1L")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "parse extraction response"))
}
