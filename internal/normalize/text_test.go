package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/nota-flow/internal/model"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Supermercado X", CleanText("  Supermercado \n\t X  "))
	assert.Nil(t, OptionalText("   "))
	require.NotNil(t, OptionalText(" SP "))
	assert.Equal(t, "SP", *OptionalText(" SP "))
}

func TestMerchantFromSubject(t *testing.T) {
	tests := map[string]string{
		"Nota Fiscal Supermercado X":             "Supermercado X",
		"Sua nota fiscal eletrônica - Padaria Y": "Padaria Y",
		"NFC-e nº 1234 de Farmácia Z":            "Farmácia Z",
		"Fwd: Recibo: Posto Shell":               "Posto Shell",
		"Comprovante de compra Loja A":           "Loja A",
		"Mercado Bom Preço":                      "Mercado Bom Preço",
		"Nota Fiscal":                            "",
	}
	for subject, want := range tests {
		t.Run(subject, func(t *testing.T) {
			assert.Equal(t, want, MerchantFromSubject(subject))
		})
	}
}

func TestResolveMerchant(t *testing.T) {
	assert.Equal(t, "Loja", ResolveMerchant("", "  ", " Loja ", "Outra"))
	assert.Equal(t, "", ResolveMerchant("", " "))
}

func TestNormalizeItemsIsResilient(t *testing.T) {
	raw := []model.RawItem{
		{Description: "Arroz", TotalPrice: model.StringValue("not-a-number")},
		{Description: "  ", TotalPrice: model.NumberValue(3)},
		{Description: "Feijão  Preto", Unit: "kg", Quantity: model.StringValue("1,5"), UnitPrice: model.StringValue("8,00"), TotalPrice: model.StringValue("12,00")},
	}

	items := NormalizeItems(raw)
	require.Len(t, items, 2)

	assert.Equal(t, "Arroz", items[0].Description)
	assert.True(t, items[0].Quantity.Equal(decimal.NewFromInt(1)))
	assert.True(t, items[0].TotalPrice.IsZero())
	assert.True(t, items[0].UnitPrice.IsZero())
	assert.Nil(t, items[0].Unit)

	assert.Equal(t, "Feijão Preto", items[1].Description)
	assert.True(t, items[1].Quantity.Equal(decimal.RequireFromString("1.5")))
	require.NotNil(t, items[1].Unit)
	assert.Equal(t, "kg", *items[1].Unit)
	assert.True(t, items[1].TotalPrice.Equal(decimal.NewFromInt(12)))
}

func TestMatchCategory(t *testing.T) {
	tests := []struct {
		guess string
		want  string
	}{
		{"Mercado", "Mercado"},
		{"mercado", "Mercado"},
		{"saude", "Saúde"},
		{"ALIMENTACAO", "Alimentação"},
		{"Transprote", "Transporte"},
		{"supermarket", "Mercado"},
		{"Farmácia", "Saúde"},
		{"xyzzy quantum", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.guess, func(t *testing.T) {
			got := MatchCategory(tt.guess)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
			assert.True(t, model.IsCategory(*got))
		})
	}
}
