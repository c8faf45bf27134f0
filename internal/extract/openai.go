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

const defaultOpenAIURL = "https://api.openai.com/v1"

// openAIProvider talks to the OpenAI chat completions API.
type openAIProvider struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
}

func newOpenAIProvider(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, common.MissingConfig("extractor.api_key")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}

	return &openAIProvider{
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     strings.TrimRight(baseURL, "/"),
		temperature: cfg.Temperature,
		maxTokens:   maxTokensOrDefault(cfg.MaxTokens),
		httpClient:  newHTTPClient(),
	}, nil
}

// Complete sends the prompt, attaching the image as a data URI when present.
func (c *openAIProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	var userContent any = prompt.User
	if len(prompt.Image) > 0 {
		dataURI := fmt.Sprintf("data:%s;base64,%s", prompt.ImageMIMEType, base64.StdEncoding.EncodeToString(prompt.Image))
		userContent = []map[string]any{
			{"type": "text", "text": prompt.User},
			{"type": "image_url", "image_url": map[string]string{"url": dataURI}},
		}
	}

	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{"role": "system", "content": prompt.System},
			{"role": "user", "content": userContent},
		},
		"temperature":     c.temperature,
		"max_tokens":      c.maxTokens,
		"response_format": map[string]string{"type": "json_object"},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", common.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", common.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
		return "", classifyStatus("OpenAI", resp.StatusCode, body)
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", common.Permanent(fmt.Errorf("failed to parse response: %w", err))
	}
	if len(response.Choices) == 0 {
		return "", common.Permanent(fmt.Errorf("no completion choices returned"))
	}

	return response.Choices[0].Message.Content, nil
}

// openAIResponse represents the OpenAI API response structure.
type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
}
