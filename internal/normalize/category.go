package normalize

import (
	"github.com/agnivade/levenshtein"

	"github.com/Veraticus/nota-flow/internal/model"
)

// Common guesses that are not close spellings of a category label.
var categoryAliases = map[string]string{
	"supermercado":  "Mercado",
	"supermarket":   "Mercado",
	"groceries":     "Mercado",
	"grocery":       "Mercado",
	"restaurante":   "Alimentação",
	"restaurant":    "Alimentação",
	"food":          "Alimentação",
	"lanchonete":    "Alimentação",
	"delivery":      "Alimentação",
	"transport":     "Transporte",
	"combustivel":   "Transporte",
	"fuel":          "Transporte",
	"uber":          "Transporte",
	"farmacia":      "Saúde",
	"pharmacy":      "Saúde",
	"health":        "Saúde",
	"education":     "Educação",
	"entertainment": "Lazer",
	"leisure":       "Lazer",
	"aluguel":       "Moradia",
	"housing":       "Moradia",
	"roupas":        "Vestuário",
	"clothing":      "Vestuário",
	"services":      "Serviços",
	"other":         "Outros",
	"outro":         "Outros",
}

// MatchCategory snaps a free-form guess onto the closed category set. Exact
// matches ignore case and accents; otherwise the nearest label within a small
// edit distance wins. Anything further away yields nil.
func MatchCategory(guess string) *string {
	g := fold(guess)
	if g == "" {
		return nil
	}

	if alias, ok := categoryAliases[g]; ok {
		return &alias
	}

	best, bestDist := "", -1
	for _, c := range model.Categories {
		label := fold(c)
		if label == g {
			match := c
			return &match
		}
		d := levenshtein.ComputeDistance(g, label)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}

	if bestDist >= 0 && bestDist <= maxCategoryDistance(g) {
		return &best
	}
	return nil
}

func maxCategoryDistance(s string) int {
	if n := len([]rune(s)) / 4; n > 2 {
		return n
	}
	return 2
}
