package telemetry

import (
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"log/slog"
)

// Business metrics for application-level monitoring
var (
	// Barcode resolution metrics
	BarcodeLookupsTotal   api.Int64Counter
	BarcodeProviderErrors api.Int64Counter
	BarcodeCacheHitsTotal api.Int64Counter
	BarcodeNotFoundTotal  api.Int64Counter

	// Receipt pipeline metrics
	ReceiptsProcessedTotal api.Int64Counter
	ReceiptCacheHitsTotal  api.Int64Counter
	ItemsExtractedTotal    api.Int64Counter
	SchemaViolationsTotal  api.Int64Counter
	OCRErrorsTotal         api.Int64Counter

	// Error tracking
	ApplicationErrorsTotal api.Int64Counter
	DatabaseErrorsTotal    api.Int64Counter
)

// InitBusinessMetrics initializes all business-level metrics
func InitBusinessMetrics(provider *metric.MeterProvider) error {
	meter := provider.Meter("business")

	var err error

	// Barcode resolution metrics
	BarcodeLookupsTotal, err = meter.Int64Counter("barcode.lookups.total",
		api.WithDescription("Total barcode lookups by resolution source (cache, provider name)"))
	if err != nil {
		return err
	}

	BarcodeProviderErrors, err = meter.Int64Counter("barcode.provider.errors.total",
		api.WithDescription("Total barcode provider transport errors by provider"))
	if err != nil {
		return err
	}

	BarcodeCacheHitsTotal, err = meter.Int64Counter("barcode.cache.hits.total",
		api.WithDescription("Total barcode lookups served from the durable cache"))
	if err != nil {
		return err
	}

	BarcodeNotFoundTotal, err = meter.Int64Counter("barcode.not_found.total",
		api.WithDescription("Total barcode lookups exhausted without a match"))
	if err != nil {
		return err
	}

	// Receipt pipeline metrics
	ReceiptsProcessedTotal, err = meter.Int64Counter("receipts.processed.total",
		api.WithDescription("Total receipts processed by outcome (extracted, cached)"))
	if err != nil {
		return err
	}

	ReceiptCacheHitsTotal, err = meter.Int64Counter("receipts.cache.hits.total",
		api.WithDescription("Total receipt extraction cache hits by tier"))
	if err != nil {
		return err
	}

	ItemsExtractedTotal, err = meter.Int64Counter("receipts.items.extracted.total",
		api.WithDescription("Total items extracted from receipts by source"))
	if err != nil {
		return err
	}

	SchemaViolationsTotal, err = meter.Int64Counter("receipts.schema.violations.total",
		api.WithDescription("Total extraction results rejected or remapped for schema violations"))
	if err != nil {
		return err
	}

	OCRErrorsTotal, err = meter.Int64Counter("ocr.errors.total",
		api.WithDescription("Total OCR provider failures"))
	if err != nil {
		return err
	}

	// Error Metrics
	ApplicationErrorsTotal, err = meter.Int64Counter("application.errors.total",
		api.WithDescription("Total application errors by component and type"))
	if err != nil {
		return err
	}

	DatabaseErrorsTotal, err = meter.Int64Counter("database.errors.total",
		api.WithDescription("Total database errors by operation and type"))
	if err != nil {
		return err
	}

	slog.Info("Business metrics initialized successfully")
	return nil
}
