package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func validTransaction() Transaction {
	return Transaction{
		UserID:         "user-1",
		MerchantName:   "Supermercado X",
		Origin:         OriginEmail,
		OccurredOn:     strPtr("2026-01-20"),
		OccurredAt:     strPtr("14:32:00"),
		TotalAmount:    decimal.RequireFromString("87.50"),
		SubtotalAmount: decimal.RequireFromString("87.50"),
		Items: []LineItem{
			{Description: "Arroz", Quantity: decimal.NewFromInt(1), TotalPrice: decimal.RequireFromString("10")},
		},
	}
}

func TestTransactionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr bool
	}{
		{"valid", func(*Transaction) {}, false},
		{"missing user", func(tx *Transaction) { tx.UserID = " " }, true},
		{"missing merchant", func(tx *Transaction) { tx.MerchantName = "" }, true},
		{"unknown origin", func(tx *Transaction) { tx.Origin = "fax" }, true},
		{"bad date", func(tx *Transaction) { tx.OccurredOn = strPtr("21/01/2026") }, true},
		{"bad time", func(tx *Transaction) { tx.OccurredAt = strPtr("25:99") }, true},
		{"nil date allowed", func(tx *Transaction) { tx.OccurredOn = nil }, false},
		{"item without description", func(tx *Transaction) { tx.Items[0].Description = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidTransaction)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestTransactionCanonical(t *testing.T) {
	tx := validTransaction()
	data, err := json.Marshal(tx.Canonical())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "Supermercado X", doc["merchantName"])
	assert.Equal(t, 87.5, doc["totalAmount"])
	assert.Equal(t, 87.5, doc["subtotalAmount"])
	assert.Equal(t, 0.0, doc["discountAmount"])
	assert.Equal(t, "2026-01-20", doc["occurredOn"])
	assert.Nil(t, doc["taxId"])

	items, ok := doc["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "Arroz", item["description"])
	assert.Nil(t, item["unit"])
}

func TestSyncStatsRecord(t *testing.T) {
	var s SyncStats
	for _, k := range []OutcomeKind{OutcomeProcessed, OutcomeProcessed, OutcomeDuplicate, OutcomeRejected, OutcomeSkipped, OutcomeErrored} {
		s.Record(Outcome{Kind: k})
	}

	assert.Equal(t, 2, s.Processed)
	assert.Equal(t, 1, s.Duplicates)
	assert.Equal(t, 1, s.Rejected)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.Errored)
	assert.Len(t, s.Outcomes, 6)
}
