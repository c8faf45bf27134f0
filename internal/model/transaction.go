package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidTransaction is returned when a transaction breaks a storage invariant.
var ErrInvalidTransaction = errors.New("invalid transaction")

// Transaction is the canonical, persisted representation of a purchase.
// Optional text fields are nil when unknown.
type Transaction struct {
	CreatedAt        time.Time
	TotalAmount      decimal.Decimal
	SubtotalAmount   decimal.Decimal
	DiscountAmount   decimal.Decimal
	TaxID            *string
	Address          *string
	City             *string
	State            *string
	OccurredOn       *string // YYYY-MM-DD
	OccurredAt       *string // HH:MM:SS
	PaymentMethod    *string
	Category         *string
	DocumentNumber   *string
	AccessKey        *string
	SourceExternalID *string
	ID               string
	UserID           string
	MerchantName     string
	Origin           Origin
	Items            []LineItem
}

// LineItem is one purchased product. It is owned by exactly one transaction.
type LineItem struct {
	Unit          *string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	TotalPrice    decimal.Decimal
	ID            string
	TransactionID string
	Description   string
}

// Validate checks the invariants every stored transaction must hold.
func (t *Transaction) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil", ErrInvalidTransaction)
	}
	if strings.TrimSpace(t.UserID) == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidTransaction)
	}
	if strings.TrimSpace(t.MerchantName) == "" {
		return fmt.Errorf("%w: missing merchant name", ErrInvalidTransaction)
	}
	if !t.Origin.Valid() {
		return fmt.Errorf("%w: unknown origin %q", ErrInvalidTransaction, t.Origin)
	}
	if t.OccurredOn != nil {
		if _, err := time.Parse("2006-01-02", *t.OccurredOn); err != nil {
			return fmt.Errorf("%w: occurred_on %q", ErrInvalidTransaction, *t.OccurredOn)
		}
	}
	if t.OccurredAt != nil {
		if _, err := time.Parse("15:04:05", *t.OccurredAt); err != nil {
			return fmt.Errorf("%w: occurred_at %q", ErrInvalidTransaction, *t.OccurredAt)
		}
	}
	for i, item := range t.Items {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("%w: item %d has no description", ErrInvalidTransaction, i)
		}
	}
	return nil
}

// CanonicalItem is the wire shape of a line item.
type CanonicalItem struct {
	Unit        *string `json:"unit"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalPrice  float64 `json:"totalPrice"`
}

// CanonicalTransaction is the JSON document handed to persistence and printed by the CLI.
type CanonicalTransaction struct {
	TaxID          *string         `json:"taxId"`
	Address        *string         `json:"address"`
	City           *string         `json:"city"`
	State          *string         `json:"state"`
	OccurredOn     *string         `json:"occurredOn"`
	OccurredAt     *string         `json:"occurredAt"`
	PaymentMethod  *string         `json:"paymentMethod"`
	Category       *string         `json:"category"`
	DocumentNumber *string         `json:"documentNumber"`
	AccessKey      *string         `json:"accessKey"`
	MerchantName   string          `json:"merchantName"`
	Items          []CanonicalItem `json:"items"`
	TotalAmount    float64         `json:"totalAmount"`
	DiscountAmount float64         `json:"discountAmount"`
	SubtotalAmount float64         `json:"subtotalAmount"`
}

// Canonical converts t to its wire shape.
func (t *Transaction) Canonical() CanonicalTransaction {
	items := make([]CanonicalItem, 0, len(t.Items))
	for _, item := range t.Items {
		items = append(items, CanonicalItem{
			Description: item.Description,
			Quantity:    item.Quantity.InexactFloat64(),
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice.InexactFloat64(),
			TotalPrice:  item.TotalPrice.InexactFloat64(),
		})
	}

	return CanonicalTransaction{
		MerchantName:   t.MerchantName,
		TaxID:          t.TaxID,
		Address:        t.Address,
		City:           t.City,
		State:          t.State,
		OccurredOn:     t.OccurredOn,
		OccurredAt:     t.OccurredAt,
		TotalAmount:    t.TotalAmount.InexactFloat64(),
		PaymentMethod:  t.PaymentMethod,
		Category:       t.Category,
		DiscountAmount: t.DiscountAmount.InexactFloat64(),
		SubtotalAmount: t.SubtotalAmount.InexactFloat64(),
		DocumentNumber: t.DocumentNumber,
		AccessKey:      t.AccessKey,
		Items:          items,
	}
}

// TransactionUpdate carries the fields a user may edit after import.
// Nil fields are left unchanged.
type TransactionUpdate struct {
	MerchantName *string
	OccurredOn   *string
	TotalAmount  *decimal.Decimal
}

// IsEmpty reports whether the update changes nothing.
func (u TransactionUpdate) IsEmpty() bool {
	return u.MerchantName == nil && u.OccurredOn == nil && u.TotalAmount == nil
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	StartDate *string
	EndDate   *string
	Origin    Origin
	Limit     int
	Offset    int
}
