package receipts

import (
	"context"
	"log/slog"

	"github.com/FreshKeepCo/inventory-service/internal/core/ai"
	"github.com/FreshKeepCo/inventory-service/internal/core/classifier"
	"github.com/FreshKeepCo/inventory-service/internal/core/taxonomy"
	"github.com/FreshKeepCo/inventory-service/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	api "go.opentelemetry.io/otel/metric"
)

// Extraction strategies.
const (
	StrategyRules = "rules"
	StrategyAI    = "ai"
)

// Extractor turns reconstructed receipt text into parsed items using the
// configured strategy. The rules strategy filters lines locally and
// categorizes them with the classifier artifact; the ai strategy hands the
// whole text to a generative model.
type Extractor struct {
	strategy string
	model    *classifier.Model // nil when the artifact is unavailable
	aiClient ai.Extractor
	snapshot *taxonomy.Snapshot
	logger   *slog.Logger
}

func NewExtractor(strategy string, model *classifier.Model, aiClient ai.Extractor, snapshot *taxonomy.Snapshot, logger *slog.Logger) *Extractor {
	return &Extractor{
		strategy: strategy,
		model:    model,
		aiClient: aiClient,
		snapshot: snapshot,
		logger:   logger,
	}
}

// Extract recovers purchased items from receipt text. An empty result is
// valid; lines that cannot be attributed to any category are dropped
// silently.
func (e *Extractor) Extract(ctx context.Context, text string) []ParsedItem {
	ctx, span := tracer.Start(ctx, "receipts.Extractor.Extract")
	defer span.End()

	if e.strategy == StrategyAI && e.aiClient != nil {
		return e.extractWithAI(ctx, text)
	}
	return e.extractWithRules(ctx, text)
}

func (e *Extractor) extractWithRules(ctx context.Context, text string) []ParsedItem {
	items := []ParsedItem{}
	for _, line := range FilterProductLines(text) {
		name := CleanProductLine(line)
		if name == "" {
			continue
		}
		quantity, unit := ParseQuantity(line)

		entry, confident, ok := e.categorize(name)
		if !ok {
			continue
		}

		items = append(items, ParsedItem{
			RawText:        line,
			Name:           name,
			CategoryID:     entry.ID,
			CategoryName:   entry.Name,
			ExpiryDays:     entry.DefaultShelfLifeDays,
			Quantity:       quantity,
			Unit:           unit,
			Source:         e.ruleSource(),
			ConfidenceHigh: confident,
		})
	}

	e.logger.Debug("Extracted items with rules", "items_count", len(items))
	if telemetry.ItemsExtractedTotal != nil && len(items) > 0 {
		telemetry.ItemsExtractedTotal.Add(ctx, int64(len(items)),
			api.WithAttributes(attribute.String("source", e.ruleSource())))
	}
	return items
}

// categorize assigns a taxonomy entry to a candidate line. With the
// classifier loaded, a fallback-coded prediction means the line survived
// filtering but is not a product, so it is dropped. Without the
// classifier, keyword mapping stands in at reduced confidence and keeps
// every candidate, fallback-categorized ones included.
func (e *Extractor) categorize(name string) (taxonomy.CategoryEntry, bool, bool) {
	if e.model != nil {
		code := e.model.Predict(name)
		if code == taxonomy.OtherCategoryCode {
			return taxonomy.CategoryEntry{}, false, false
		}
		entry, ok := e.snapshot.ByCode(code)
		if !ok {
			e.logger.Warn("Classifier predicted a code missing from the taxonomy",
				"code", code,
				"line", name)
			return taxonomy.CategoryEntry{}, false, false
		}
		return entry, true, true
	}

	return e.snapshot.MapExternal(name), false, true
}

func (e *Extractor) ruleSource() string {
	if e.model != nil {
		return SourceClassifier
	}
	return SourceKeyword
}

func (e *Extractor) extractWithAI(ctx context.Context, text string) []ParsedItem {
	extracted, err := e.aiClient.ExtractItems(ctx, text)
	if err != nil {
		// No retry: extraction failure yields an empty (and cacheable)
		// result rather than a pipeline error.
		e.logger.Error("AI extraction failed, returning no items", "error", err)
		return []ParsedItem{}
	}

	items := make([]ParsedItem, 0, len(extracted))
	for _, item := range extracted {
		if item.Name == "" {
			e.logger.Warn("Dropping extracted item without a name",
				"violation", "missing_name",
				"category_id", item.CategoryID)
			e.recordViolation(ctx, "missing_name")
			continue
		}

		entry, ok := e.snapshot.ByID(item.CategoryID)
		if !ok {
			e.logger.Warn("Extracted item carries an unknown category id, substituting fallback category",
				"violation", "invalid_category_id",
				"item_name", item.Name,
				"category_id", item.CategoryID)
			e.recordViolation(ctx, "invalid_category_id")
			entry = e.snapshot.Other()
		}

		items = append(items, ParsedItem{
			RawText:        item.Name,
			Name:           item.Name,
			CategoryID:     entry.ID,
			CategoryName:   entry.Name,
			ExpiryDays:     entry.DefaultShelfLifeDays,
			Quantity:       item.Quantity,
			Unit:           item.Unit,
			Source:         SourceAI,
			ConfidenceHigh: true,
		})
	}

	e.logger.Debug("Extracted items with AI", "items_count", len(items))
	if telemetry.ItemsExtractedTotal != nil && len(items) > 0 {
		telemetry.ItemsExtractedTotal.Add(ctx, int64(len(items)),
			api.WithAttributes(attribute.String("source", SourceAI)))
	}
	return items
}

func (e *Extractor) recordViolation(ctx context.Context, violation string) {
	if telemetry.SchemaViolationsTotal != nil {
		telemetry.SchemaViolationsTotal.Add(ctx, 1,
			api.WithAttributes(attribute.String("violation", violation)))
	}
}
