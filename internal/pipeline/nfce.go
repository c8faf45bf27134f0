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
	"github.com/Veraticus/nota-flow/internal/nfce"
	"github.com/Veraticus/nota-flow/internal/normalize"
	"github.com/Veraticus/nota-flow/internal/service"
)

// ErrPageUnreadable is returned when an NFC-e page must be saved but could not be read.
var ErrPageUnreadable = errors.New("NFC-e page could not be read")

// Fetcher downloads and extracts an NFC-e portal page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) nfce.Result
}

// NFCeImport is the outcome of an NFC-e import. Transaction is set only when the
// import was saved.
type NFCeImport struct {
	Transaction *model.Transaction
	Preview     nfce.Result
}

// Importer reads NFC-e QR codes. Without saving it returns a preview for the user
// to review; saved imports are never deduplicated.
type Importer struct {
	fetcher    Fetcher
	store      service.Storage
	normalizer *normalize.Normalizer
	logger     *slog.Logger
	now        func() time.Time
	portal     string
}

// NewImporter creates an Importer. portal is the state portal used to resolve QR
// payloads that carry only the access key parameter.
func NewImporter(fetcher Fetcher, store service.Storage, portal string, logger *slog.Logger) *Importer {
	logger = common.OrDefault(logger)
	return &Importer{
		fetcher:    fetcher,
		store:      store,
		normalizer: normalize.New(logger),
		logger:     logger,
		now:        time.Now,
		portal:     portal,
	}
}

// ImportNFCe resolves payload to a portal page and scrapes it. When save is true the
// scrape is normalized and stored for userID.
func (i *Importer) ImportNFCe(ctx context.Context, userID, payload string, save bool) (NFCeImport, error) {
	if i.fetcher == nil {
		return NFCeImport{}, common.MissingConfig("nfce")
	}

	qr, err := nfce.ParseQRCode(payload, i.portal)
	if err != nil {
		return NFCeImport{}, common.NewUserError("could not read the QR code", err)
	}

	preview := i.fetcher.Fetch(ctx, qr.URL)
	if preview.AccessKey == "" {
		preview.AccessKey = qr.AccessKey
	}
	out := NFCeImport{Preview: preview}
	if !save {
		return out, nil
	}

	switch {
	case i.store == nil:
		return out, common.MissingConfig("database")
	case strings.TrimSpace(userID) == "":
		return out, common.MissingConfig("user.id")
	}

	if !preview.Scraped {
		return out, common.NewUserError(nfce.ManualEntryMessage, ErrPageUnreadable)
	}

	now := i.now()
	result := i.normalizer.Normalize(normalize.Input{
		UserID:      userID,
		Origin:      model.OriginScrapedHTML,
		MessageTime: &now,
		Extraction:  preview.Extraction(),
	})
	if result.Rejected() {
		return out, common.NewUserError(nfce.ManualEntryMessage, fmt.Errorf("%w: %s", ErrRejected, result.Rejection))
	}

	id, err := i.store.SaveTransaction(ctx, result.Transaction)
	if err != nil {
		return out, fmt.Errorf("failed to save NFC-e import: %w", err)
	}
	out.Transaction = result.Transaction

	i.logger.Info("Imported NFC-e", "user_id", userID, "transaction_id", id, "access_key", preview.AccessKey)
	return out, nil
}
