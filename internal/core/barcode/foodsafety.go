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

// FoodSafetyProvider queries the Food Safety Korea C005 dataset. The key
// has a daily request quota (500/day on the free tier), so this provider
// runs last in the cascade.
type FoodSafetyProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type foodSafetyResponse struct {
	C005 struct {
		Result struct {
			Code    string `json:"CODE"`
			Message string `json:"MSG"`
		} `json:"RESULT"`
		Rows []struct {
			ProductName  string `json:"PRDLST_NM"`
			ProductType  string `json:"PRDLST_DCNM"`
			Manufacturer string `json:"BSSH_NM"`
		} `json:"row"`
	} `json:"C005"`
}

func NewFoodSafetyProvider(cfg config.ProvidersConfig) *FoodSafetyProvider {
	return &FoodSafetyProvider{
		baseURL: strings.TrimRight(cfg.FoodSafetyBaseURL, "/"),
		apiKey:  cfg.FoodSafetyAPIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (p *FoodSafetyProvider) Name() string {
	return "food_safety"
}

func (p *FoodSafetyProvider) Lookup(ctx context.Context, barcode string) Outcome {
	lookupURL := fmt.Sprintf("%s/api/%s/C005/json/1/1/BAR_CD=%s", p.baseURL, p.apiKey, barcode)

	req, err := http.NewRequestWithContext(ctx, "GET", lookupURL, nil)
	if err != nil {
		return TransportError(fmt.Errorf("failed to create food safety request: %w", err))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return TransportError(fmt.Errorf("food safety request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TransportError(fmt.Errorf("food safety API error: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TransportError(fmt.Errorf("failed to read food safety response: %w", err))
	}

	var fsResp foodSafetyResponse
	if err := json.Unmarshal(body, &fsResp); err != nil {
		return TransportError(fmt.Errorf("failed to unmarshal food safety response: %w", err))
	}

	// INFO-000 is success, INFO-200 means no matching rows. Anything else
	// (quota exhausted, bad key) is a provider failure.
	switch fsResp.C005.Result.Code {
	case "INFO-000":
	case "INFO-200":
		return NotFound()
	default:
		return TransportError(fmt.Errorf("food safety API result %s: %s",
			fsResp.C005.Result.Code, fsResp.C005.Result.Message))
	}

	if len(fsResp.C005.Rows) == 0 || fsResp.C005.Rows[0].ProductName == "" {
		return NotFound()
	}

	row := fsResp.C005.Rows[0]
	return Found(&ProductInfo{
		Name:          row.ProductName,
		CategoryLabel: row.ProductType,
		Manufacturer:  row.Manufacturer,
	})
}
