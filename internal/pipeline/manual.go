package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/model"
	"github.com/Veraticus/nota-flow/internal/normalize"
	"github.com/Veraticus/nota-flow/internal/service"
)

// ManualItem is a line item typed by the user.
type ManualItem struct {
	Description string
	Quantity    string
	Price       string
}

// ManualEntry is a transaction typed by the user. Amounts accept the same formats
// as receipts ("1.234,56", "R$ 10", "12.5"). Date defaults to today.
type ManualEntry struct {
	Merchant      string
	Total         string
	Date          string
	Time          string
	PaymentMethod string
	Category      string
	Items         []ManualItem
}

// Manual stores user-typed transactions. Duplicate entries are accepted.
type Manual struct {
	store      service.Storage
	normalizer *normalize.Normalizer
	logger     *slog.Logger
	now        func() time.Time
}

// NewManual creates a Manual.
func NewManual(store service.Storage, logger *slog.Logger) *Manual {
	logger = common.OrDefault(logger)
	return &Manual{
		store:      store,
		normalizer: normalize.New(logger),
		logger:     logger,
		now:        time.Now,
	}
}

// Add validates entry and stores it for userID.
func (m *Manual) Add(ctx context.Context, userID string, entry ManualEntry) (*model.Transaction, error) {
	switch {
	case m.store == nil:
		return nil, common.MissingConfig("database")
	case strings.TrimSpace(userID) == "":
		return nil, common.MissingConfig("user.id")
	}

	if normalize.CleanText(entry.Merchant) == "" {
		return nil, common.NewUserError("merchant is required", ErrRejected)
	}
	if _, ok := normalize.ParseMoney(entry.Total); !ok {
		return nil, common.NewUserError(fmt.Sprintf("invalid total %q", entry.Total), ErrRejected)
	}
	if entry.Date != "" {
		if _, ok := normalize.ParseDateString(entry.Date); !ok {
			return nil, common.NewUserError(fmt.Sprintf("invalid date %q, use YYYY-MM-DD or DD/MM/YYYY", entry.Date), ErrRejected)
		}
	}
	if entry.Time != "" && normalize.NormalizeTime(entry.Time) == nil {
		return nil, common.NewUserError(fmt.Sprintf("invalid time %q, use HH:MM", entry.Time), ErrRejected)
	}

	items := make([]model.RawItem, 0, len(entry.Items))
	for _, it := range entry.Items {
		items = append(items, model.RawItem{
			Description: it.Description,
			Quantity:    text(it.Quantity),
			TotalPrice:  text(it.Price),
		})
	}

	now := m.now()
	result := m.normalizer.Normalize(normalize.Input{
		UserID:      userID,
		Origin:      model.OriginManual,
		MessageTime: &now,
		Extraction: model.ValidExtraction(model.ExtractionResult{
			MerchantName:  text(entry.Merchant),
			Date:          text(entry.Date),
			Time:          text(entry.Time),
			Total:         text(entry.Total),
			PaymentMethod: text(entry.PaymentMethod),
			Category:      text(entry.Category),
			Items:         items,
		}),
	})
	if result.Rejected() {
		return nil, common.NewUserError("the transaction could not be saved", fmt.Errorf("%w: %s", ErrRejected, result.Rejection))
	}

	id, err := m.store.SaveTransaction(ctx, result.Transaction)
	if err != nil {
		return nil, fmt.Errorf("failed to save manual transaction: %w", err)
	}

	m.logger.Info("Added manual transaction", "user_id", userID, "transaction_id", id)
	return result.Transaction, nil
}

func text(s string) model.RawValue {
	if strings.TrimSpace(s) == "" {
		return model.RawValue{}
	}
	return model.StringValue(s)
}
