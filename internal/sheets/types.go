package sheets

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/nota-flow/internal/model"
)

// Uncategorized labels transactions without a category in the breakdown.
const Uncategorized = "Sem categoria"

// DateRange is the period an export covers, as YYYY-MM-DD. Either end may be empty.
type DateRange struct {
	Start string
	End   string
}

// Label describes the range for the report header.
func (r DateRange) Label() string {
	switch {
	case r.Start == "" && r.End == "":
		return "All dates"
	case r.End == "":
		return "From " + r.Start
	case r.Start == "":
		return "Until " + r.End
	default:
		return r.Start + " to " + r.End
	}
}

// CategorySummary is one row of the category breakdown.
type CategorySummary struct {
	Name   string
	Amount decimal.Decimal
	Count  int
}

// Summary aggregates the exported transactions.
type Summary struct {
	Range      DateRange
	Total      decimal.Decimal
	ByCategory []CategorySummary
	Count      int
}

// Summarize totals txns overall and per category. Categories are ordered by
// amount, largest first.
func Summarize(txns []model.Transaction, rng DateRange) Summary {
	s := Summary{Range: rng, Count: len(txns)}

	index := make(map[string]int)
	for _, txn := range txns {
		s.Total = s.Total.Add(txn.TotalAmount)

		name := Uncategorized
		if txn.Category != nil && *txn.Category != "" {
			name = *txn.Category
		}
		i, ok := index[name]
		if !ok {
			i = len(s.ByCategory)
			index[name] = i
			s.ByCategory = append(s.ByCategory, CategorySummary{Name: name})
		}
		s.ByCategory[i].Count++
		s.ByCategory[i].Amount = s.ByCategory[i].Amount.Add(txn.TotalAmount)
	}

	sort.SliceStable(s.ByCategory, func(i, j int) bool {
		if !s.ByCategory[i].Amount.Equal(s.ByCategory[j].Amount) {
			return s.ByCategory[i].Amount.GreaterThan(s.ByCategory[j].Amount)
		}
		return s.ByCategory[i].Name < s.ByCategory[j].Name
	})

	return s
}
