package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Veraticus/nota-flow/internal/common"
)

// Prompt is a provider-neutral completion request.
type Prompt struct {
	System        string
	User          string
	ImageMIMEType string
	Image         []byte
}

// Provider sends one prompt to a model and returns its raw text reply.
// Errors are marked with common.RetryableError when a retry may succeed.
type Provider interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Config holds configuration for the extractor.
type Config struct {
	Provider          string
	APIKey            string
	Model             string
	BaseURL           string
	LocaleHint        string
	MaxRetries        int
	RetryDelay        time.Duration
	Timeout           time.Duration
	RequestsPerMinute int
	Temperature       float64
	MaxTokens         int
}

const defaultMaxTokens = 2048

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return defaultMaxTokens
	}
	return n
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// classifyStatus maps a provider HTTP failure onto the retry policy.
func classifyStatus(provider string, status int, body []byte) error {
	err := fmt.Errorf("%s API error (status %d): %s", provider, status, truncate(string(body), 300))
	switch {
	case status == http.StatusTooManyRequests:
		return &common.RetryableError{Err: fmt.Errorf("%w: %w", common.ErrRateLimit, err), Retryable: true}
	case status >= 500:
		return &common.RetryableError{Err: err, Retryable: true}
	default:
		return common.Permanent(err)
	}
}

// transportError marks network failures retryable unless the caller gave up.
func transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return common.Permanent(fmt.Errorf("request failed: %w", err))
	}
	return &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
