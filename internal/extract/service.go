package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/model"
	"github.com/Veraticus/nota-flow/internal/service"
)

// DefaultTimeout bounds a single provider call when none is configured.
const DefaultTimeout = 45 * time.Second

var errEmptyRequest = errors.New("nothing to extract: request has neither text nor image")

// Service implements service.Extractor on top of a Provider, adding pacing,
// retries and a per-call timeout.
type Service struct {
	provider  Provider
	throttle  *throttle
	logger    *slog.Logger
	locale    string
	retryOpts service.RetryOptions
	timeout   time.Duration
}

var _ service.Extractor = (*Service)(nil)

// NewService wraps provider with the pacing and retry settings in cfg.
func NewService(provider Provider, cfg Config, logger *slog.Logger) *Service {
	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Service{
		provider:  provider,
		throttle:  newThrottle(cfg.RequestsPerMinute),
		logger:    common.OrDefault(logger),
		locale:    cfg.LocaleHint,
		retryOpts: retryOpts,
		timeout:   timeout,
	}
}

// Extract prompts the model and classifies its reply. A non-nil error means the
// model could not be consulted; the returned extraction is then unavailable.
func (s *Service) Extract(ctx context.Context, req service.ExtractRequest) (model.Extraction, error) {
	if req.Text == "" && len(req.Image) == 0 {
		return model.UnavailableExtraction(errEmptyRequest), errEmptyRequest
	}

	prompt := buildPrompt(req, s.locale)

	if err := s.throttle.wait(ctx); err != nil {
		return model.UnavailableExtraction(err), err
	}

	var raw string
	err := common.WithRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		out, err := s.provider.Complete(callCtx, prompt)
		if err != nil {
			return err
		}
		raw = out
		return nil
	}, s.retryOpts)
	if err != nil {
		err = fmt.Errorf("extractor call failed: %w", err)
		return model.UnavailableExtraction(err), err
	}

	ext := ParseResponse(raw)
	switch ext.Kind {
	case model.ExtractionMalformed:
		s.logger.Warn("Extractor returned malformed output", "error", ext.Err)
		s.logger.Debug("Malformed extractor output", "raw", raw)
	case model.ExtractionDeclined:
		s.logger.Debug("Extractor declined input", "reason", ext.Reason)
	}
	return ext, nil
}

// Close releases the pacing goroutine.
func (s *Service) Close() {
	s.throttle.Close()
}
