// Package ai extracts purchased items from reconstructed receipt text
// using a generative language model. It is the alternative to the local
// rules-and-classifier extraction path.
package ai

import (
	"context"
)

// ExtractedItem is one purchased item as returned by the model. CategoryID
// refers to the internal category taxonomy the prompt enumerates; callers
// must still validate it against the live snapshot.
type ExtractedItem struct {
	Name       string  `json:"name"`
	CategoryID int     `json:"category_id"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
}

// Extractor turns full receipt text into a list of purchased items. An
// empty list is a valid result for receipts with no recognizable items.
type Extractor interface {
	ExtractItems(ctx context.Context, receiptText string) ([]ExtractedItem, error)
}
