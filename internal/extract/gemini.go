package extract

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/Veraticus/nota-flow/internal/common"
)

// geminiProvider calls Gemini through the genai SDK.
type geminiProvider struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

func newGeminiProvider(ctx context.Context, cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, common.MissingConfig("extractor.api_key")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newHTTPClient(),
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &geminiProvider{
		client:      client,
		model:       model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(maxTokensOrDefault(cfg.MaxTokens)),
	}, nil
}

// Complete sends the prompt with the image as an inline blob when present.
func (g *geminiProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	parts := []*genai.Part{{Text: prompt.User}}
	if len(prompt.Image) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: prompt.ImageMIMEType, Data: prompt.Image},
		})
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}},
		Temperature:       genai.Ptr(g.temperature),
		MaxOutputTokens:   g.maxTokens,
		ResponseMIMEType:  "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genCfg)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", common.Permanent(fmt.Errorf("generate content: %w", err))
		}
		return "", &common.RetryableError{Err: fmt.Errorf("generate content: %w", err), Retryable: true}
	}

	text := resp.Text()
	if text == "" {
		return "", common.Permanent(fmt.Errorf("empty response from model"))
	}
	return text, nil
}
