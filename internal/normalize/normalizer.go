package normalize

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/model"
)

// RejectionReason says why a source could not become a transaction.
type RejectionReason string

const (
	// RejectNothingExtracted means neither a merchant nor a total could be resolved.
	RejectNothingExtracted RejectionReason = "nothing extracted"
	// RejectNoTotal means a merchant resolved but no total did.
	RejectNoTotal RejectionReason = "total not found"
	// RejectInvalid means the assembled transaction broke a storage invariant.
	RejectInvalid RejectionReason = "invalid transaction"
)

// Rejection is a normal, non-exceptional outcome of normalization.
type Rejection struct {
	Reason RejectionReason
	Detail string
}

func (r Rejection) String() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

// Input is everything the normalizer knows about one source.
type Input struct {
	MessageTime *time.Time
	UserID      string
	Origin      model.Origin
	ExternalID  string
	Subject     string
	Sender      string
	Body        string
	Extraction  model.Extraction
}

// Result holds exactly one of Transaction or Rejection.
type Result struct {
	Transaction *model.Transaction
	Rejection   *Rejection
}

// Rejected reports whether normalization produced a rejection.
func (r Result) Rejected() bool {
	return r.Rejection != nil
}

// Normalizer assembles canonical transactions from extractor output and message
// context. It is stateless and safe for concurrent use.
type Normalizer struct {
	logger *slog.Logger
}

// New creates a Normalizer.
func New(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: common.OrDefault(logger)}
}

// Normalize resolves every field of a transaction, falling back from extractor
// output to message context. Only a valid extraction contributes fields; for any
// other kind the message context alone decides.
func (n *Normalizer) Normalize(in Input) Result {
	var res model.ExtractionResult
	if in.Extraction.Kind == model.ExtractionValid {
		res = in.Extraction.Result
	}

	merchant := ResolveMerchant(res.MerchantName.Text(), in.Sender, MerchantFromSubject(in.Subject))

	total, ok := ParseMoneyValue(res.Total)
	if !ok {
		total, ok = TotalFromBody(in.Body)
	}
	if !ok {
		reason := RejectNoTotal
		if merchant == "" {
			reason = RejectNothingExtracted
		}
		n.logger.Debug("Rejected source", "external_id", in.ExternalID, "reason", reason)
		return Result{Rejection: &Rejection{Reason: reason}}
	}
	if merchant == "" {
		merchant = UnknownMerchant
	}

	subtotal, ok := ParseMoneyValue(res.Subtotal)
	if !ok {
		subtotal = total
	}
	discount, ok := ParseMoneyValue(res.Discount)
	if !ok {
		discount = decimal.Zero
	}

	txn := &model.Transaction{
		UserID:         in.UserID,
		Origin:         in.Origin,
		MerchantName:   merchant,
		TaxID:          OptionalText(res.TaxID.Text()),
		Address:        OptionalText(res.Address.Text()),
		City:           OptionalText(res.City.Text()),
		State:          OptionalText(res.State.Text()),
		OccurredOn:     NormalizeDate(res.Date, in.MessageTime),
		OccurredAt:     NormalizeTime(res.Time.Text()),
		TotalAmount:    total,
		SubtotalAmount: subtotal,
		DiscountAmount: discount,
		PaymentMethod:  OptionalText(res.PaymentMethod.Text()),
		Category:       MatchCategory(res.Category.Text()),
		DocumentNumber: OptionalText(res.DocumentNumber.Text()),
		AccessKey:      accessKey(res.AccessKey.Text()),
		Items:          NormalizeItems(res.Items),
	}
	if in.ExternalID != "" {
		id := in.ExternalID
		txn.SourceExternalID = &id
	}

	if err := txn.Validate(); err != nil {
		n.logger.Warn("Normalized transaction failed validation", "external_id", in.ExternalID, "error", err)
		return Result{Rejection: &Rejection{Reason: RejectInvalid, Detail: err.Error()}}
	}
	return Result{Transaction: txn}
}

// accessKey removes the grouping spaces printed on NFC-e receipts.
func accessKey(s string) *string {
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil
	}
	return &s
}
