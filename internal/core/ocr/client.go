// Package ocr extracts positioned text tokens from receipt images and
// reconstructs reading-order lines from their coordinates.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/FreshKeepCo/inventory-service/config"
	"github.com/google/uuid"
)

// Token is a single recognized text fragment with the position of its
// top-left corner on the source image.
type Token struct {
	Text string
	X    float64
	Y    float64
}

// Client sends receipt images to a Clova-style OCR endpoint and returns
// positioned tokens.
type Client struct {
	cfg        config.OCRConfig
	httpClient *http.Client
	logger     *slog.Logger
}

type ocrRequest struct {
	Images    []ocrRequestImage `json:"images"`
	RequestID string            `json:"requestId"`
	Version   string            `json:"version"`
	Timestamp int64             `json:"timestamp"`
}

type ocrRequestImage struct {
	Format string `json:"format"`
	Name   string `json:"name"`
	Data   string `json:"data"`
}

type ocrResponse struct {
	Images []struct {
		InferResult string `json:"inferResult"`
		Message     string `json:"message"`
		Fields      []struct {
			InferText    string `json:"inferText"`
			BoundingPoly struct {
				Vertices []struct {
					X float64 `json:"x"`
					Y float64 `json:"y"`
				} `json:"vertices"`
			} `json:"boundingPoly"`
		} `json:"fields"`
	} `json:"images"`
}

func NewClient(cfg config.OCRConfig, logger *slog.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// Recognize submits an image and returns the recognized tokens with the
// first bounding-box corner as their position.
func (c *Client) Recognize(ctx context.Context, image []byte, format string) ([]Token, error) {
	reqBody := ocrRequest{
		Images: []ocrRequestImage{
			{
				Format: format,
				Name:   "receipt",
				Data:   base64.StdEncoding.EncodeToString(image),
			},
		},
		RequestID: uuid.New().String(),
		Version:   "V2",
		Timestamp: time.Now().UnixMilli(),
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ocr request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.APIURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-OCR-SECRET", c.cfg.SecretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ocr response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr API error: %d - %s", resp.StatusCode, string(body))
	}

	var ocrResp ocrResponse
	if err := json.Unmarshal(body, &ocrResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ocr response: %w", err)
	}

	if len(ocrResp.Images) == 0 {
		return nil, fmt.Errorf("ocr response contains no images")
	}
	result := ocrResp.Images[0]
	if result.InferResult == "ERROR" {
		return nil, fmt.Errorf("ocr inference failed: %s", result.Message)
	}

	tokens := make([]Token, 0, len(result.Fields))
	for _, field := range result.Fields {
		if field.InferText == "" || len(field.BoundingPoly.Vertices) == 0 {
			continue
		}
		corner := field.BoundingPoly.Vertices[0]
		tokens = append(tokens, Token{
			Text: field.InferText,
			X:    corner.X,
			Y:    corner.Y,
		})
	}

	c.logger.Debug("OCR recognized tokens", "count", len(tokens))
	return tokens, nil
}
