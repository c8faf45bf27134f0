// Package pipeline turns raw sources into stored transactions. It owns the
// orchestration around the mail reader, extractor, normalizer and storage: the sync
// window policy, candidate fan-in, deduplication and per-candidate outcomes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/mail"
	"github.com/Veraticus/nota-flow/internal/model"
	"github.com/Veraticus/nota-flow/internal/normalize"
	"github.com/Veraticus/nota-flow/internal/service"
)

// GmailSource is the sync_state key for the mailbox source.
const GmailSource = "gmail"

// DefaultMaxCandidates bounds how many messages a single run will process.
const DefaultMaxCandidates = 50

// DefaultQueries are the receipt keywords searched in the mailbox.
var DefaultQueries = []string{
	"nota fiscal",
	"recibo",
	"comprovante",
	"pedido",
	"compra aprovada",
	"fatura",
	"receipt",
}

// Outcome reasons shown to the user.
const (
	reasonDedupFailed     = "could not check for an existing transaction"
	reasonFetchFailed     = "could not read message"
	reasonTooShort        = "message has too little text"
	reasonNotAReceipt     = "not a receipt"
	reasonQuota           = "extractor quota exceeded"
	reasonUnreadable      = "extractor returned unreadable output"
	reasonUnavailable     = "extractor unavailable"
	reasonSaveFailed      = "could not save transaction"
	reasonAlreadyImported = "already imported"
	reasonDryRun          = "dry run, not saved"
)

// SyncConfig configures a Syncer.
type SyncConfig struct {
	Queries       []string
	LocaleHint    string
	MaxCandidates int
	FirstSyncDays int
	Concurrency   int
}

// SyncOptions adjusts a single run.
type SyncOptions struct {
	// Progress, when set, is called after each candidate with the number done so far.
	Progress func(done, total int)
	// MaxCandidates overrides the configured cap when positive.
	MaxCandidates int
	// FirstSync ignores the stored sync timestamp and scans the first-sync window.
	FirstSync bool
	// DryRun extracts and normalizes without writing anything.
	DryRun bool
}

// Syncer imports receipts from a mailbox.
type Syncer struct {
	source     service.MailSource
	extractor  service.Extractor
	store      service.Storage
	normalizer *normalize.Normalizer
	logger     *slog.Logger
	now        func() time.Time
	runs       singleflight.Group
	cfg        SyncConfig
}

// NewSyncer creates a Syncer. Missing collaborators are reported by Sync so the
// caller gets a configuration error before any work starts.
func NewSyncer(source service.MailSource, extractor service.Extractor, store service.Storage, cfg SyncConfig, logger *slog.Logger) *Syncer {
	if len(cfg.Queries) == 0 {
		cfg.Queries = DefaultQueries
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	if cfg.FirstSyncDays <= 0 {
		cfg.FirstSyncDays = DefaultFirstSyncDays
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	logger = common.OrDefault(logger)

	return &Syncer{
		source:     source,
		extractor:  extractor,
		store:      store,
		normalizer: normalize.New(logger),
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

func (s *Syncer) validate(userID string) error {
	switch {
	case s.source == nil:
		return common.MissingConfig("gmail")
	case s.extractor == nil:
		return common.MissingConfig("extractor")
	case s.store == nil:
		return common.MissingConfig("database")
	case strings.TrimSpace(userID) == "":
		return common.MissingConfig("user.id")
	}
	return nil
}

// Sync runs one import for userID. Failures on individual messages are recorded as
// outcomes and never stop the run; the returned error is reserved for configuration
// problems, an unreachable mailbox and cancellation. Concurrent calls for the same
// user and options share a single run.
func (s *Syncer) Sync(ctx context.Context, userID string, opts SyncOptions) (model.SyncStats, error) {
	if err := s.validate(userID); err != nil {
		return model.SyncStats{}, err
	}

	key := fmt.Sprintf("%s|first=%t|dry=%t|max=%d", userID, opts.FirstSync, opts.DryRun, opts.MaxCandidates)
	v, err, shared := s.runs.Do(key, func() (any, error) {
		return s.run(ctx, userID, opts)
	})
	if shared {
		s.logger.Debug("Joined sync already in progress", "user_id", userID)
	}
	stats, _ := v.(model.SyncStats)
	return stats, err
}

func (s *Syncer) run(ctx context.Context, userID string, opts SyncOptions) (model.SyncStats, error) {
	started := s.now()

	var last *time.Time
	if !opts.FirstSync {
		var err error
		last, err = s.store.LastSync(ctx, userID, GmailSource)
		if err != nil {
			return model.SyncStats{}, fmt.Errorf("failed to load last sync: %w", err)
		}
	}

	stats := model.SyncStats{WindowDays: ScanWindowDays(started, last, s.cfg.FirstSyncDays)}

	limit := s.cfg.MaxCandidates
	if opts.MaxCandidates > 0 {
		limit = opts.MaxCandidates
	}

	candidates, err := s.collect(ctx, stats.WindowDays, limit)
	if err != nil {
		return stats, err
	}
	stats.Candidates = len(candidates)

	s.logger.Info("Starting sync",
		"user_id", userID,
		"window_days", stats.WindowDays,
		"candidates", len(candidates),
		"dry_run", opts.DryRun)

	outcomes := make([]model.Outcome, len(candidates))
	var (
		mu   sync.Mutex
		done int
	)

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, cand := range candidates {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = s.process(ctx, userID, cand, opts.DryRun)

			if opts.Progress != nil {
				mu.Lock()
				done++
				opts.Progress(done, len(candidates))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		if o.Kind != "" {
			stats.Record(o)
		}
	}

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("sync interrupted: %w", err)
	}

	if !opts.DryRun {
		if err := s.store.SetLastSync(ctx, userID, GmailSource, started); err != nil {
			// The next run simply scans a wider window.
			s.logger.Warn("Failed to record sync time", "user_id", userID, "error", err)
		}
	}

	s.logger.Info("Sync complete",
		"user_id", userID,
		"processed", stats.Processed,
		"duplicates", stats.Duplicates,
		"rejected", stats.Rejected,
		"skipped", stats.Skipped,
		"errored", stats.Errored)

	return stats, nil
}

// collect runs every query and merges the results by message id, keeping the order
// in which ids were first seen. A failing query is logged; the run fails only when
// every query fails.
func (s *Syncer) collect(ctx context.Context, windowDays, limit int) ([]service.MailCandidate, error) {
	seen := make(map[string]struct{})
	var (
		merged   []service.MailCandidate
		failures int
		firstErr error
	)

	for _, query := range s.cfg.Queries {
		found, err := s.source.ListCandidates(ctx, query, windowDays)
		if err != nil {
			failures++
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Warn("Mailbox query failed", "query", query, "error", err)
			continue
		}
		for _, c := range found {
			if c.ExternalID == "" {
				continue
			}
			if _, dup := seen[c.ExternalID]; dup {
				continue
			}
			seen[c.ExternalID] = struct{}{}
			merged = append(merged, c)
		}
	}

	if failures == len(s.cfg.Queries) {
		return nil, fmt.Errorf("failed to list messages: %w", firstErr)
	}

	if len(merged) > limit {
		s.logger.Info("Capping candidates", "found", len(merged), "max", limit)
		merged = merged[:limit]
	}
	return merged, nil
}

// process takes one message through dedup, fetch, extraction, normalization and
// storage. Every failure becomes an outcome.
func (s *Syncer) process(ctx context.Context, userID string, cand service.MailCandidate, dryRun bool) model.Outcome {
	id := cand.ExternalID
	logger := s.logger.With("external_id", id)

	existing, found, err := s.store.FindBySourceExternalID(ctx, userID, id)
	if err != nil {
		logger.Error("Dedup check failed", "error", err)
		return errored(id, reasonDedupFailed)
	}
	if found {
		return model.Outcome{Kind: model.OutcomeDuplicate, ExternalID: id, TransactionID: existing, Reason: reasonAlreadyImported}
	}

	msg, err := s.source.FetchFull(ctx, id)
	if err != nil {
		logger.Warn("Failed to fetch message", "error", err)
		return errored(id, reasonFetchFailed)
	}

	prepared, ok := mail.Prepare(msg)
	if !ok {
		return skipped(id, reasonTooShort)
	}
	if prepared.Fallback {
		logger.Debug("Body too short, extracting from headers and snippet", "body_length", len(prepared.Body))
	}

	extraction, err := s.extractor.Extract(ctx, service.ExtractRequest{
		Text:       prepared.Text,
		LocaleHint: s.cfg.LocaleHint,
	})
	if err != nil && extraction.Kind != model.ExtractionUnavailable {
		extraction = model.UnavailableExtraction(err)
	}
	if extraction.Kind == "" {
		extraction = model.UnavailableExtraction(errors.New("empty extractor response"))
	}
	if extraction.Kind == model.ExtractionMalformed {
		logger.Warn("Unreadable extractor reply", "error", extraction.Err, "raw", extraction.Raw)
		return errored(id, reasonUnreadable)
	}

	result := s.normalizer.Normalize(normalize.Input{
		UserID:      userID,
		Origin:      model.OriginEmail,
		ExternalID:  id,
		Subject:     prepared.Subject,
		Sender:      prepared.Sender,
		Body:        strings.Join([]string{prepared.Body, prepared.Snippet}, "\n"),
		MessageTime: mail.MessageTime(msg),
		Extraction:  extraction,
	})

	if result.Rejected() {
		return rejectionOutcome(id, extraction, *result.Rejection)
	}

	if dryRun {
		return model.Outcome{Kind: model.OutcomeProcessed, ExternalID: id, Reason: reasonDryRun}
	}

	txnID, err := s.store.SaveTransaction(ctx, result.Transaction)
	if errors.Is(err, common.ErrDuplicateEntry) {
		return model.Outcome{Kind: model.OutcomeDuplicate, ExternalID: id, Reason: reasonAlreadyImported}
	}
	if err != nil {
		logger.Error("Failed to save transaction", "error", err)
		return errored(id, reasonSaveFailed)
	}

	logger.Debug("Imported transaction", "transaction_id", txnID, "merchant", result.Transaction.MerchantName)
	return model.Outcome{Kind: model.OutcomeProcessed, ExternalID: id, TransactionID: txnID}
}

// rejectionOutcome classifies a message the normalizer could not use. What the
// extractor said decides whether it counts as a rejection, a skip or an error.
func rejectionOutcome(id string, extraction model.Extraction, rejection normalize.Rejection) model.Outcome {
	switch extraction.Kind {
	case model.ExtractionDeclined:
		return skipped(id, reasonNotAReceipt)
	case model.ExtractionUnavailable:
		if errors.Is(extraction.Err, common.ErrQuotaExceeded) || errors.Is(extraction.Err, common.ErrRateLimit) {
			return skipped(id, reasonQuota)
		}
		return errored(id, reasonUnavailable)
	default:
		return model.Outcome{Kind: model.OutcomeRejected, ExternalID: id, Reason: rejection.String()}
	}
}

func skipped(id, reason string) model.Outcome {
	return model.Outcome{Kind: model.OutcomeSkipped, ExternalID: id, Reason: reason}
}

func errored(id, reason string) model.Outcome {
	return model.Outcome{Kind: model.OutcomeErrored, ExternalID: id, Reason: reason}
}
