package normalize

import "regexp"

// UnknownMerchant labels transactions whose total resolved but whose merchant did not.
const UnknownMerchant = "Desconhecido"

var subjectNoise = regexp.MustCompile(`(?i)^\s*((re|fwd?|enc)\s*:\s*)*` +
	`((sua|seu|nova|novo)\s+)?` +
	`(nota\s+fiscal(\s+eletr[oô]nica)?|nfc-?e|nf-?e|recibo|comprovante(\s+de\s+(compra|pagamento))?|` +
	`pedido(\s+confirmado)?|compra\s+aprovada|fatura|receipt)` +
	`(\s*(n[ºo°]?\.?\s*)?#?\d+)?` +
	`(\s*(-|:|\|)\s*|\s+(de|da|do|from)\s+|\s+)?`)

// MerchantFromSubject strips receipt boilerplate from a subject line so that
// "Nota Fiscal Supermercado X" yields "Supermercado X".
func MerchantFromSubject(subject string) string {
	return CleanText(subjectNoise.ReplaceAllString(CleanText(subject), ""))
}

// ResolveMerchant returns the first candidate that is non-empty after cleaning.
func ResolveMerchant(candidates ...string) string {
	for _, c := range candidates {
		if c = CleanText(c); c != "" {
			return c
		}
	}
	return ""
}
