package barcode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/FreshKeepCo/inventory-service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func providersConfig(serverURL string) config.ProvidersConfig {
	return config.ProvidersConfig{
		OpenFoodFactsBaseURL: serverURL,
		FoodQRBaseURL:        serverURL,
		FoodQRAPIKey:         "test-key",
		FoodSafetyBaseURL:    serverURL,
		FoodSafetyAPIKey:     "test-key",
		Timeout:              5 * time.Second,
	}
}

func TestOpenFoodFactsFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/product/1234567890.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": 1,
			"product": {
				"product_name": "Whole Milk 1L",
				"categories": "Dairies, Milks, Whole milks",
				"brands": "Sunrise Farms"
			}
		}`))
	}))
	defer server.Close()

	provider := NewOpenFoodFactsProvider(providersConfig(server.URL))
	outcome := provider.Lookup(context.Background(), "1234567890")

	require.Equal(t, StatusFound, outcome.Status)
	assert.Equal(t, "Whole Milk 1L", outcome.Product.Name)
	assert.Equal(t, "Whole milks", outcome.Product.CategoryLabel)
	assert.Equal(t, "Sunrise Farms", outcome.Product.Manufacturer)
}

func TestOpenFoodFactsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status": 0, "status_verbose": "product not found"}`))
	}))
	defer server.Close()

	provider := NewOpenFoodFactsProvider(providersConfig(server.URL))
	outcome := provider.Lookup(context.Background(), "000")

	assert.Equal(t, StatusNotFound, outcome.Status)
}

func TestOpenFoodFactsServerErrorIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	provider := NewOpenFoodFactsProvider(providersConfig(server.URL))
	outcome := provider.Lookup(context.Background(), "000")

	assert.Equal(t, StatusTransportError, outcome.Status)
	assert.Error(t, outcome.Err)
}

func TestFoodQRFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		assert.Equal(t, "8801111222333", r.URL.Query().Get("brcdNo"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"totalCount": 1,
			"items": [{"prdctNm": "Shin Ramyun", "buesNm": "Nongshim", "prdctTypeNm": "noodle"}]
		}`))
	}))
	defer server.Close()

	provider := NewFoodQRProvider(providersConfig(server.URL))
	outcome := provider.Lookup(context.Background(), "8801111222333")

	require.Equal(t, StatusFound, outcome.Status)
	assert.Equal(t, "Shin Ramyun", outcome.Product.Name)
	assert.Equal(t, "noodle", outcome.Product.CategoryLabel)
	assert.Equal(t, "Nongshim", outcome.Product.Manufacturer)
}

func TestFoodQRZeroCountIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"totalCount": 0, "items": []}`))
	}))
	defer server.Close()

	provider := NewFoodQRProvider(providersConfig(server.URL))
	outcome := provider.Lookup(context.Background(), "000")

	assert.Equal(t, StatusNotFound, outcome.Status)
}

func TestFoodSafetyFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/test-key/C005/json/1/1/BAR_CD=8809999888777", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"C005": {
				"RESULT": {"CODE": "INFO-000", "MSG": "ok"},
				"row": [{"PRDLST_NM": "Seaweed Snack", "PRDLST_DCNM": "snack", "BSSH_NM": "Ocean Foods"}]
			}
		}`))
	}))
	defer server.Close()

	provider := NewFoodSafetyProvider(providersConfig(server.URL))
	outcome := provider.Lookup(context.Background(), "8809999888777")

	require.Equal(t, StatusFound, outcome.Status)
	assert.Equal(t, "Seaweed Snack", outcome.Product.Name)
	assert.Equal(t, "snack", outcome.Product.CategoryLabel)
}

func TestFoodSafetyNoRowsIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"C005": {"RESULT": {"CODE": "INFO-200", "MSG": "no data"}}}`))
	}))
	defer server.Close()

	provider := NewFoodSafetyProvider(providersConfig(server.URL))
	outcome := provider.Lookup(context.Background(), "000")

	assert.Equal(t, StatusNotFound, outcome.Status)
}

func TestFoodSafetyQuotaErrorIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"C005": {"RESULT": {"CODE": "ERROR-337", "MSG": "daily quota exceeded"}}}`))
	}))
	defer server.Close()

	provider := NewFoodSafetyProvider(providersConfig(server.URL))
	outcome := provider.Lookup(context.Background(), "000")

	assert.Equal(t, StatusTransportError, outcome.Status)
	assert.Contains(t, outcome.Err.Error(), "ERROR-337")
}
