package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
)

func TestInitBusinessMetricsCreatesAllCounters(t *testing.T) {
	provider := metric.NewMeterProvider(metric.WithReader(metric.NewManualReader()))
	require.NoError(t, InitBusinessMetrics(provider))

	assert.NotNil(t, BarcodeLookupsTotal)
	assert.NotNil(t, BarcodeProviderErrors)
	assert.NotNil(t, BarcodeCacheHitsTotal)
	assert.NotNil(t, BarcodeNotFoundTotal)
	assert.NotNil(t, ReceiptsProcessedTotal)
	assert.NotNil(t, ReceiptCacheHitsTotal)
	assert.NotNil(t, ItemsExtractedTotal)
	assert.NotNil(t, SchemaViolationsTotal)
	assert.NotNil(t, OCRErrorsTotal)
	assert.NotNil(t, ApplicationErrorsTotal)
	assert.NotNil(t, DatabaseErrorsTotal)
}
