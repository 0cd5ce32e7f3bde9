package ai

import (
	"fmt"
	"strings"

	"github.com/FreshKeepCo/inventory-service/internal/core/taxonomy"
)

// buildExtractionPrompt enumerates the category taxonomy so the model can
// only answer in terms of known category ids.
func buildExtractionPrompt(snapshot *taxonomy.Snapshot, receiptText string) string {
	var categories strings.Builder
	for _, entry := range snapshot.All() {
		fmt.Fprintf(&categories, "%d: %s\n", entry.ID, entry.Name)
	}

	return fmt.Sprintf(`Extract the purchased grocery items from the receipt text below.

Rules:
- Only include actual purchased products.
- Exclude store names, addresses, phone numbers, dates, times, prices, totals, discounts, card and payment details, and any other receipt boilerplate.
- Assign each item the best matching category id from this list:
%s
- Quantity defaults to 1 and unit to "piece" when the line does not state them.

Respond ONLY with a JSON array, no other text:
[{"name": "...", "category_id": <id>, "quantity": <number>, "unit": "..."}]

Receipt text:
%s`, categories.String(), receiptText)
}
