package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Veraticus/nota-flow/internal/common"
)

// NewProvider creates a model provider based on the configured name.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIProvider(cfg)
	case "anthropic":
		return newAnthropicProvider(cfg)
	case "gemini":
		return newGeminiProvider(ctx, cfg)
	case "":
		return nil, common.MissingConfig("extractor.provider")
	default:
		return nil, common.InvalidConfig("extractor.provider", "unsupported provider "+cfg.Provider)
	}
}

// New builds a ready-to-use extractor from configuration.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Service, error) {
	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewService(provider, cfg, logger), nil
}
