package barcode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/FreshKeepCo/inventory-service/config"
)

// OpenFoodFactsProvider queries the public Open Food Facts database. It is
// free and unmetered, so it runs first in the cascade.
type OpenFoodFactsProvider struct {
	baseURL    string
	httpClient *http.Client
}

type openFoodFactsResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName string `json:"product_name"`
		Categories  string `json:"categories"`
		Brands      string `json:"brands"`
	} `json:"product"`
}

func NewOpenFoodFactsProvider(cfg config.ProvidersConfig) *OpenFoodFactsProvider {
	return &OpenFoodFactsProvider{
		baseURL: strings.TrimRight(cfg.OpenFoodFactsBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (p *OpenFoodFactsProvider) Name() string {
	return "open_food_facts"
}

func (p *OpenFoodFactsProvider) Lookup(ctx context.Context, barcode string) Outcome {
	url := fmt.Sprintf("%s/api/v0/product/%s.json", p.baseURL, barcode)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return TransportError(fmt.Errorf("failed to create open food facts request: %w", err))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return TransportError(fmt.Errorf("open food facts request failed: %w", err))
	}
	defer resp.Body.Close()

	// The API answers 404 with a status-0 body for unknown barcodes.
	if resp.StatusCode == http.StatusNotFound {
		return NotFound()
	}
	if resp.StatusCode != http.StatusOK {
		return TransportError(fmt.Errorf("open food facts API error: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TransportError(fmt.Errorf("failed to read open food facts response: %w", err))
	}

	var offResp openFoodFactsResponse
	if err := json.Unmarshal(body, &offResp); err != nil {
		return TransportError(fmt.Errorf("failed to unmarshal open food facts response: %w", err))
	}

	if offResp.Status != 1 || offResp.Product.ProductName == "" {
		return NotFound()
	}

	return Found(&ProductInfo{
		Name:          offResp.Product.ProductName,
		CategoryLabel: primaryCategory(offResp.Product.Categories),
		Manufacturer:  offResp.Product.Brands,
	})
}

// primaryCategory picks the most specific entry from the comma-separated
// category list Open Food Facts returns.
func primaryCategory(categories string) string {
	if categories == "" {
		return ""
	}
	parts := strings.Split(categories, ",")
	return strings.TrimSpace(parts[len(parts)-1])
}
