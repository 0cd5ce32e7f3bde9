// Package receipts runs the receipt processing pipeline: OCR tokens are
// reconstructed into text, the text is normalized and content-hashed, and
// purchased items are extracted either by local rules plus a classifier or
// by a generative model. Extraction results are cached by content hash in
// two tiers.
package receipts

import (
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("receipts-service")

// Extraction sources.
const (
	SourceClassifier = "classifier"
	SourceKeyword    = "keyword"
	SourceAI         = "ai"
)

// ParsedItem is one purchased item recovered from a receipt.
type ParsedItem struct {
	RawText      string  `json:"raw_text"`
	Name         string  `json:"name"`
	CategoryID   int     `json:"category_id"`
	CategoryName string  `json:"category_name"`
	ExpiryDays   int     `json:"expiry_days"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	// ExpiresAt is computed from the capture time, not from any date
	// printed on the receipt, and is re-stamped on cache hits.
	ExpiresAt time.Time `json:"expires_at"`
	Source    string    `json:"source"`
	// ConfidenceHigh is false when the category came from keyword
	// matching instead of the classifier or the model.
	ConfidenceHigh bool `json:"confidence_high"`
}

// ProcessedReceipt is the pipeline output for one receipt image.
type ProcessedReceipt struct {
	TextHash   string       `json:"text_hash"`
	Items      []ParsedItem `json:"items"`
	FromCache  bool         `json:"from_cache"`
	CacheTier  string       `json:"cache_tier,omitempty"`
	CapturedAt time.Time    `json:"captured_at"`
}
