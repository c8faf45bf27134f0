package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/model"
	"github.com/Veraticus/nota-flow/internal/normalize"
	"github.com/Veraticus/nota-flow/internal/ratelimit"
	"github.com/Veraticus/nota-flow/internal/service"
)

// DefaultScanQuota is the number of image scans a user may run per hour.
const DefaultScanQuota = 10

// ErrRejected is returned when a source cannot be turned into a transaction.
var ErrRejected = errors.New("receipt rejected")

// ErrEmptyImage is returned when a scan has no image data.
var ErrEmptyImage = errors.New("empty image")

// ScanConfig configures a Scanner.
type ScanConfig struct {
	LocaleHint string
	// QuotaPerHour is reported in quota errors; the limiter enforces it.
	QuotaPerHour int
}

// Scanner imports photos of paper receipts through the extractor. Image scans
// have no external id and are never deduplicated.
type Scanner struct {
	extractor  service.Extractor
	store      service.Storage
	limiter    ratelimit.Limiter
	normalizer *normalize.Normalizer
	logger     *slog.Logger
	now        func() time.Time
	cfg        ScanConfig
}

// NewScanner creates a Scanner.
func NewScanner(extractor service.Extractor, store service.Storage, limiter ratelimit.Limiter, cfg ScanConfig, logger *slog.Logger) *Scanner {
	if cfg.QuotaPerHour <= 0 {
		cfg.QuotaPerHour = DefaultScanQuota
	}
	logger = common.OrDefault(logger)
	return &Scanner{
		extractor:  extractor,
		store:      store,
		limiter:    limiter,
		normalizer: normalize.New(logger),
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Scan extracts a receipt from image and stores it for userID. A user over quota
// gets a *common.QuotaError immediately; the scan is not queued.
func (s *Scanner) Scan(ctx context.Context, userID string, image []byte, mimeType string) (*model.Transaction, error) {
	switch {
	case s.extractor == nil:
		return nil, common.MissingConfig("extractor")
	case s.store == nil:
		return nil, common.MissingConfig("database")
	case s.limiter == nil:
		return nil, common.MissingConfig("scan.quota_per_hour")
	case strings.TrimSpace(userID) == "":
		return nil, common.MissingConfig("user.id")
	}
	if len(image) == 0 {
		return nil, common.NewUserError("the image is empty", ErrEmptyImage)
	}

	if err := ratelimit.Check(ctx, s.limiter, ratelimit.ScanKey(userID), s.cfg.QuotaPerHour); err != nil {
		return nil, err
	}

	extraction, err := s.extractor.Extract(ctx, service.ExtractRequest{
		Image:         image,
		ImageMIMEType: mimeType,
		LocaleHint:    s.cfg.LocaleHint,
	})
	if err != nil {
		s.logger.Warn("Image extraction failed", "user_id", userID, "error", err)
		return nil, common.NewUserError("could not read the receipt image, try again later", err)
	}

	switch extraction.Kind {
	case model.ExtractionDeclined:
		return nil, common.NewUserError("the image does not look like a receipt", common.ErrNotAReceipt)
	case model.ExtractionMalformed:
		s.logger.Warn("Unreadable extractor output for image", "user_id", userID, "error", extraction.Err)
		return nil, common.NewUserError("could not read the receipt image", fmt.Errorf("%w: unreadable extractor output", ErrRejected))
	}

	now := s.now()
	result := s.normalizer.Normalize(normalize.Input{
		UserID:      userID,
		Origin:      model.OriginScannedImage,
		MessageTime: &now,
		Extraction:  extraction,
	})
	if result.Rejected() {
		return nil, common.NewUserError("the receipt could not be imported", fmt.Errorf("%w: %s", ErrRejected, result.Rejection))
	}

	id, err := s.store.SaveTransaction(ctx, result.Transaction)
	if err != nil {
		return nil, fmt.Errorf("failed to save scanned receipt: %w", err)
	}

	s.logger.Info("Imported scanned receipt", "user_id", userID, "transaction_id", id)
	return result.Transaction, nil
}
