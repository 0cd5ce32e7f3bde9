package barcode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/FreshKeepCo/inventory-service/config"
)

// FoodQRProvider queries the keyed FoodQR registry. It sits between the
// free provider and the quota-limited one in the cascade.
type FoodQRProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type foodQRResponse struct {
	TotalCount int `json:"totalCount"`
	Items      []struct {
		ProductName  string `json:"prdctNm"`
		BusinessName string `json:"buesNm"`
		ProductType  string `json:"prdctTypeNm"`
	} `json:"items"`
}

func NewFoodQRProvider(cfg config.ProvidersConfig) *FoodQRProvider {
	return &FoodQRProvider{
		baseURL: strings.TrimRight(cfg.FoodQRBaseURL, "/"),
		apiKey:  cfg.FoodQRAPIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (p *FoodQRProvider) Name() string {
	return "foodqr"
}

func (p *FoodQRProvider) Lookup(ctx context.Context, barcode string) Outcome {
	query := url.Values{}
	query.Set("apiKey", p.apiKey)
	query.Set("brcdNo", barcode)
	lookupURL := fmt.Sprintf("%s/api/openapi/food/list?%s", p.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", lookupURL, nil)
	if err != nil {
		return TransportError(fmt.Errorf("failed to create foodqr request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return TransportError(fmt.Errorf("foodqr request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TransportError(fmt.Errorf("foodqr API error: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TransportError(fmt.Errorf("failed to read foodqr response: %w", err))
	}

	var qrResp foodQRResponse
	if err := json.Unmarshal(body, &qrResp); err != nil {
		return TransportError(fmt.Errorf("failed to unmarshal foodqr response: %w", err))
	}

	if qrResp.TotalCount == 0 || len(qrResp.Items) == 0 || qrResp.Items[0].ProductName == "" {
		return NotFound()
	}

	item := qrResp.Items[0]
	return Found(&ProductInfo{
		Name:          item.ProductName,
		CategoryLabel: item.ProductType,
		Manufacturer:  item.BusinessName,
	})
}
