package normalize

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/nota-flow/internal/model"
)

// NormalizeItems converts extractor items into line items. Items without a
// description are dropped; unreadable numbers degrade to defaults instead of
// failing the item: quantity becomes 1 and prices become 0.
func NormalizeItems(raw []model.RawItem) []model.LineItem {
	items := make([]model.LineItem, 0, len(raw))
	for _, r := range raw {
		desc := CleanText(r.Description)
		if desc == "" {
			continue
		}

		qty, ok := ParseMoneyValue(r.Quantity)
		if !ok {
			qty = decimal.NewFromInt(1)
		}
		unitPrice, _ := ParseMoneyValue(r.UnitPrice)
		totalPrice, _ := ParseMoneyValue(r.TotalPrice)

		items = append(items, model.LineItem{
			Description: desc,
			Quantity:    qty,
			Unit:        OptionalText(r.Unit),
			UnitPrice:   unitPrice,
			TotalPrice:  totalPrice,
		})
	}
	return items
}
