package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/FreshKeepCo/inventory-service/config"
	"github.com/FreshKeepCo/inventory-service/internal/core/taxonomy"
)

type openAIClient struct {
	config     config.OpenAIConfig
	httpClient *http.Client
	logger     *slog.Logger
	snapshot   *taxonomy.Snapshot
}

// Chat Completions API structures (legacy)
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Store       *bool     `json:"store,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionResponse struct {
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Responses API structures (new)
type ResponsesRequest struct {
	Model     string              `json:"model"`
	Input     []ResponsesMessage  `json:"input"`
	Store     *bool               `json:"store,omitempty"`
	Reasoning *ResponsesReasoning `json:"reasoning,omitempty"`
}

type ResponsesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ResponsesReasoning struct {
	Effort string `json:"effort"`
}

type ResponsesResponse struct {
	ID        string                `json:"id"`
	Object    string                `json:"object"`
	CreatedAt int64                 `json:"created_at"`
	Model     string                `json:"model"`
	Output    []ResponsesOutputItem `json:"output"`
	Usage     Usage                 `json:"usage"`
}

type ResponsesOutputItem struct {
	ID      string                   `json:"id"`
	Type    string                   `json:"type"`
	Status  string                   `json:"status,omitempty"`
	Role    string                   `json:"role,omitempty"`
	Content []ResponsesOutputContent `json:"content,omitempty"`
}

type ResponsesOutputContent struct {
	Type        string        `json:"type"`
	Text        string        `json:"text,omitempty"`
	Annotations []interface{} `json:"annotations,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func NewOpenAIClient(cfg config.OpenAIConfig, snapshot *taxonomy.Snapshot, logger *slog.Logger) Extractor {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-5-nano"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 600 // Receipts can carry a few dozen items
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1 // Low temperature for consistent parsing
	}
	if cfg.ReasoningEffort == "" {
		cfg.ReasoningEffort = "medium"
	}
	// Default to using Responses API for new models
	if cfg.Model == "gpt-5" || cfg.Model == "gpt-5-nano" {
		cfg.UseResponsesAPI = true
		cfg.Store = true
	}

	return &openAIClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 45 * time.Second, // Increased timeout for reasoning models
		},
		logger:   logger,
		snapshot: snapshot,
	}
}

func (c *openAIClient) ExtractItems(ctx context.Context, receiptText string) ([]ExtractedItem, error) {
	if c.config.UseResponsesAPI {
		return c.extractWithResponsesAPI(ctx, receiptText)
	}
	return c.extractWithChatCompletions(ctx, receiptText)
}

func (c *openAIClient) extractWithResponsesAPI(ctx context.Context, receiptText string) ([]ExtractedItem, error) {
	prompt := buildExtractionPrompt(c.snapshot, receiptText)

	reqBody := ResponsesRequest{
		Model: c.config.Model,
		Input: []ResponsesMessage{
			{
				Role:    "user",
				Content: prompt,
			},
		},
		Reasoning: &ResponsesReasoning{
			Effort: c.config.ReasoningEffort,
		},
	}

	if c.config.Store {
		reqBody.Store = &c.config.Store
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal responses request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/responses", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create responses request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make responses request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read responses: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("responses API error: %d - %s", resp.StatusCode, string(body))
	}

	var responsesResp ResponsesResponse
	if err := json.Unmarshal(body, &responsesResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal responses: %w", err)
	}

	outputText, err := c.extractOutputText(responsesResp.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to extract output text: %w", err)
	}

	items, err := parseItemsArray(outputText)
	if err != nil {
		c.logger.Error("Failed to parse extraction response from Responses API", "error", err, "response", outputText)
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	c.logger.Info("Extracted receipt items with Responses API",
		"model", c.config.Model,
		"items_count", len(items),
		"tokens_used", responsesResp.Usage.TotalTokens,
		"reasoning_effort", c.config.ReasoningEffort)

	return items, nil
}

func (c *openAIClient) extractWithChatCompletions(ctx context.Context, receiptText string) ([]ExtractedItem, error) {
	prompt := buildExtractionPrompt(c.snapshot, receiptText)

	reqBody := ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}

	if c.config.Store {
		reqBody.Store = &c.config.Store
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make chat completion request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat completion API error: %d - %s", resp.StatusCode, string(body))
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat completion response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in chat completion response")
	}

	items, err := parseItemsArray(chatResp.Choices[0].Message.Content)
	if err != nil {
		c.logger.Error("Failed to parse extraction response from Chat Completions", "error", err, "response", chatResp.Choices[0].Message.Content)
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	c.logger.Info("Extracted receipt items with Chat Completions",
		"model", c.config.Model,
		"items_count", len(items),
		"tokens_used", chatResp.Usage.TotalTokens)

	return items, nil
}

func (c *openAIClient) extractOutputText(output []ResponsesOutputItem) (string, error) {
	for _, item := range output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, content := range item.Content {
				if content.Type == "output_text" || content.Type == "text" {
					return content.Text, nil
				}
			}
		}
	}
	return "", fmt.Errorf("no output text found in responses")
}

// parseItemsArray scrapes the JSON array out of the model output, which
// may carry markdown fences or prose around it.
func parseItemsArray(content string) ([]ExtractedItem, error) {
	content = strings.TrimSpace(content)

	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")

	if start == -1 || end == -1 || start >= end {
		return nil, fmt.Errorf("no valid JSON array found in response: %s", content)
	}

	jsonStr := content[start : end+1]

	var items []ExtractedItem
	if err := json.Unmarshal([]byte(jsonStr), &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON array: %w - content: %s", err, jsonStr)
	}

	for i := range items {
		if items[i].Quantity <= 0 {
			items[i].Quantity = 1
		}
		if items[i].Unit == "" {
			items[i].Unit = "piece"
		}
	}

	return items, nil
}
