package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/nota-flow/internal/common"
	"github.com/Veraticus/nota-flow/internal/model"
)

func TestManualAdd(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	manual := NewManual(store, nil)

	txn, err := manual.Add(ctx, testUser, ManualEntry{
		Merchant:      "  Feira   do Bairro ",
		Total:         "R$ 1.234,56",
		Date:          "21/01/2026",
		Time:          "9:05",
		PaymentMethod: "pix",
		Category:      "mercado",
		Items: []ManualItem{
			{Description: "Frutas", Quantity: "3", Price: "30,00"},
			{Description: " ", Price: "5"},
		},
	})
	require.NoError(t, err)

	stored, err := store.GetTransaction(ctx, testUser, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "Feira do Bairro", stored.MerchantName)
	assert.Equal(t, model.OriginManual, stored.Origin)
	assert.True(t, stored.TotalAmount.Equal(decimal.RequireFromString("1234.56")))
	assert.True(t, stored.SubtotalAmount.Equal(stored.TotalAmount))
	assert.True(t, stored.DiscountAmount.IsZero())
	require.NotNil(t, stored.OccurredOn)
	assert.Equal(t, "2026-01-21", *stored.OccurredOn)
	require.NotNil(t, stored.OccurredAt)
	assert.Equal(t, "09:05:00", *stored.OccurredAt)
	require.NotNil(t, stored.Category)
	assert.Equal(t, "Mercado", *stored.Category)
	require.Len(t, stored.Items, 1)
	assert.True(t, stored.Items[0].Quantity.Equal(decimal.NewFromInt(3)))
}

func TestManualAddDefaultsDateToToday(t *testing.T) {
	store := createTestStorage(t)
	manual := NewManual(store, nil)
	manual.now = func() time.Time { return time.Date(2026, 2, 3, 18, 0, 0, 0, time.UTC) }

	txn, err := manual.Add(context.Background(), testUser, ManualEntry{Merchant: "Cinema", Total: "40"})
	require.NoError(t, err)
	require.NotNil(t, txn.OccurredOn)
	assert.Equal(t, "2026-02-03", *txn.OccurredOn)
	assert.Nil(t, txn.OccurredAt)
}

func TestManualAddAcceptsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)
	manual := NewManual(store, nil)
	entry := ManualEntry{Merchant: "Uber", Total: "23,40", Date: "2026-01-21"}

	_, err := manual.Add(ctx, testUser, entry)
	require.NoError(t, err)
	_, err = manual.Add(ctx, testUser, entry)
	require.NoError(t, err)

	count, err := store.CountTransactions(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestManualAddValidation(t *testing.T) {
	store := createTestStorage(t)
	manual := NewManual(store, nil)

	tests := []struct {
		name  string
		entry ManualEntry
	}{
		{"no merchant", ManualEntry{Merchant: "  ", Total: "10"}},
		{"bad total", ManualEntry{Merchant: "Loja", Total: "dez reais"}},
		{"empty total", ManualEntry{Merchant: "Loja"}},
		{"bad date", ManualEntry{Merchant: "Loja", Total: "10", Date: "ontem"}},
		{"impossible date", ManualEntry{Merchant: "Loja", Total: "10", Date: "31/02/2026"}},
		{"bad time", ManualEntry{Merchant: "Loja", Total: "10", Time: "25:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manual.Add(context.Background(), testUser, tt.entry)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRejected)

			var userErr *common.UserError
			assert.ErrorAs(t, err, &userErr)
		})
	}

	count, err := store.CountTransactions(context.Background(), testUser)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestManualAddConfigErrors(t *testing.T) {
	_, err := NewManual(nil, nil).Add(context.Background(), testUser, ManualEntry{Merchant: "Loja", Total: "1"})
	assert.True(t, common.IsConfigError(err))

	_, err = NewManual(createTestStorage(t), nil).Add(context.Background(), "", ManualEntry{Merchant: "Loja", Total: "1"})
	assert.True(t, common.IsConfigError(err))
}
