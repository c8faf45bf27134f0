package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Veraticus/nota-flow/internal/common"
)

const defaultAnthropicURL = "https://api.anthropic.com/v1"

// anthropicProvider talks to the Anthropic messages API.
type anthropicProvider struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
}

func newAnthropicProvider(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, common.MissingConfig("extractor.api_key")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicURL
	}

	return &anthropicProvider{
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     strings.TrimRight(baseURL, "/"),
		temperature: cfg.Temperature,
		maxTokens:   maxTokensOrDefault(cfg.MaxTokens),
		httpClient:  newHTTPClient(),
	}, nil
}

// Complete sends the prompt, with the image as a base64 source block when present.
func (c *anthropicProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	content := []map[string]any{}
	if len(prompt.Image) > 0 {
		content = append(content, map[string]any{
			"type": "image",
			"source": map[string]string{
				"type":       "base64",
				"media_type": prompt.ImageMIMEType,
				"data":       base64.StdEncoding.EncodeToString(prompt.Image),
			},
		})
	}
	content = append(content, map[string]any{"type": "text", "text": prompt.User})

	requestBody := map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"system":      prompt.System,
		"messages": []map[string]any{
			{"role": "user", "content": content},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", common.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", common.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus("anthropic", resp.StatusCode, body)
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", common.Permanent(fmt.Errorf("failed to parse response: %w", err))
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", common.Permanent(fmt.Errorf("no content in response"))
	}
	return text.String(), nil
}

// anthropicResponse represents the Anthropic API response structure.
type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}
