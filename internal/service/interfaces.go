// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/nota-flow/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Persistence adapter used by the ingestion pipeline.
	InsertTransaction(ctx context.Context, txn *model.Transaction) (string, error)
	InsertLineItems(ctx context.Context, transactionID string, items []model.LineItem) error
	FindBySourceExternalID(ctx context.Context, userID, externalID string) (string, bool, error)
	SaveTransaction(ctx context.Context, txn *model.Transaction) (string, error)

	// User-driven reads and edits.
	GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, userID string, filter model.TransactionFilter) ([]model.Transaction, error)
	CountTransactions(ctx context.Context, userID string) (int, error)
	UpdateTransaction(ctx context.Context, userID, id string, update model.TransactionUpdate) error
	DeleteTransaction(ctx context.Context, userID, id string) error

	// Sync bookkeeping.
	LastSync(ctx context.Context, userID, source string) (*time.Time, error)
	SetLastSync(ctx context.Context, userID, source string, at time.Time) error

	EventStore

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// EventStore records timestamped events per key. It backs quota enforcement so that
// counters survive restarts and are shared between processes.
type EventStore interface {
	// RecordEventIfUnder atomically counts events for key newer than since and, when the
	// count is below limit, records a new event at now. It returns the count observed
	// before recording, the oldest event time in the window, and whether it recorded.
	RecordEventIfUnder(ctx context.Context, key string, since, now time.Time, limit int) (EventWindow, error)
	PruneEvents(ctx context.Context, before time.Time) (int64, error)
}

// EventWindow describes the events counted for a key.
type EventWindow struct {
	Oldest   time.Time
	Count    int
	Recorded bool
}

// MailCandidate is a message id returned by a listing query, with light metadata.
type MailCandidate struct {
	ExternalID string
	ThreadID   string
}

// MailSource lists and fetches messages from the user's mailbox.
type MailSource interface {
	ListCandidates(ctx context.Context, query string, windowDays int) ([]MailCandidate, error)
	FetchFull(ctx context.Context, externalID string) (*model.MailMessage, error)
}

// ExtractRequest is the input handed to an extractor.
type ExtractRequest struct {
	Text          string
	ImageMIMEType string
	LocaleHint    string
	Image         []byte
}

// Extractor converts raw text or an image into semi-structured receipt fields.
// A non-nil error means the extractor could not be consulted; any response it did
// produce is reported through the returned Extraction.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) (model.Extraction, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
