package cli

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/nota-flow/internal/model"
	"github.com/Veraticus/nota-flow/internal/nfce"
)

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "R$ 0,00"},
		{"7.5", "R$ 7,50"},
		{"87.50", "R$ 87,50"},
		{"999.999", "R$ 1.000,00"},
		{"1234.56", "R$ 1.234,56"},
		{"1234567.8", "R$ 1.234.567,80"},
		{"-12.3", "-R$ 12,30"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBRL(decimal.RequireFromString(tt.in)), tt.in)
	}
}

func TestRenderSyncStats(t *testing.T) {
	stats := model.SyncStats{WindowDays: 3}
	stats.Record(model.Outcome{Kind: model.OutcomeProcessed, ExternalID: "a"})
	stats.Record(model.Outcome{Kind: model.OutcomeRejected, ExternalID: "b", Reason: "total not found"})
	stats.Record(model.Outcome{Kind: model.OutcomeErrored, ExternalID: "c", Reason: "could not read message"})
	stats.Candidates = 3

	out := RenderSyncStats(stats, false)
	assert.Contains(t, out, "Window:     3 days")
	assert.Contains(t, out, "Imported:   1")
	assert.Contains(t, out, "Rejected:   1")
	assert.Contains(t, out, "Errors:     1")
	assert.NotContains(t, out, "total not found")

	out = RenderSyncStats(stats, true)
	assert.Contains(t, out, "b rejected: total not found")
	assert.Contains(t, out, "c errored: could not read message")
	assert.NotContains(t, out, "a processed")
}

func TestRenderTransaction(t *testing.T) {
	date := "2026-01-20"
	kg := "kg"
	txn := &model.Transaction{
		ID:             "t-1",
		MerchantName:   "Supermercado X",
		Origin:         model.OriginEmail,
		OccurredOn:     &date,
		TotalAmount:    decimal.RequireFromString("87.50"),
		SubtotalAmount: decimal.RequireFromString("90"),
		DiscountAmount: decimal.RequireFromString("2.5"),
		Items: []model.LineItem{
			{Description: "Feijão", Quantity: decimal.RequireFromString("1.5"), Unit: &kg, TotalPrice: decimal.NewFromInt(12)},
		},
	}

	out := RenderTransaction(txn)
	assert.Contains(t, out, "Supermercado X")
	assert.Contains(t, out, "R$ 87,50")
	assert.Contains(t, out, "R$ 90,00")
	assert.Contains(t, out, "R$ 2,50")
	assert.Contains(t, out, "2026-01-20")
	assert.Contains(t, out, "1.5 kg × Feijão")
	assert.Contains(t, out, "📬 email")
}

func TestRenderTransactionTable(t *testing.T) {
	assert.Contains(t, RenderTransactionTable(nil), "No transactions.")

	out := RenderTransactionTable([]model.Transaction{
		{ID: "t-1", MerchantName: "Padaria", TotalAmount: decimal.RequireFromString("8.5"), Origin: model.OriginManual},
		{ID: "t-2", MerchantName: "Uma loja com um nome muito comprido demais para a tabela", TotalAmount: decimal.NewFromInt(1), Origin: model.OriginEmail},
	})
	assert.Contains(t, out, "Merchant")
	assert.Contains(t, out, "t-1")
	assert.Contains(t, out, "R$ 8,50")
	assert.Contains(t, out, "…")
}

func TestRenderNFCePreview(t *testing.T) {
	out := RenderNFCePreview(nfce.Result{URL: "https://portal.example", Message: nfce.ManualEntryMessage})
	assert.Contains(t, out, "https://portal.example")
	assert.Contains(t, out, "Preencha os campos manualmente")
}
