// Package normalize turns untrusted extractor output into canonical transactions.
package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/nota-flow/internal/model"
)

var (
	nonMoneyChars = regexp.MustCompile(`[^\d,.\-]`)
	numericPrefix = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)

	bodyTotalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)valor\s+total\s*:?\s*R\$\s*(-?[\d.,]+)`),
		regexp.MustCompile(`(?i)total\s*:?\s*R\$\s*(-?[\d.,]+)`),
	}
)

// ParseMoney parses a currency string written with either Brazilian or plain
// separators. Everything except digits, comma, period and minus is dropped. With
// both separators present the period is a thousands separator and the comma the
// decimal one; a lone comma is decimal. ok is false when no number remains.
func ParseMoney(s string) (decimal.Decimal, bool) {
	cleaned := nonMoneyChars.ReplaceAllString(s, "")
	if cleaned == "" {
		return decimal.Zero, false
	}

	switch {
	case strings.Contains(cleaned, ",") && strings.Contains(cleaned, "."):
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case strings.Contains(cleaned, ","):
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	num := numericPrefix.FindString(cleaned)
	if num == "" {
		return decimal.Zero, false
	}
	num = strings.TrimSuffix(num, ".")

	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseMoneyValue applies ParseMoney to an extractor value of any kind.
func ParseMoneyValue(v model.RawValue) (decimal.Decimal, bool) {
	switch v.Kind {
	case model.ValueString, model.ValueNumber:
		return ParseMoney(v.Text())
	default:
		return decimal.Zero, false
	}
}

// TotalFromBody looks for a labeled total in free text: "valor total" first, then
// any "total", each followed by an R$ amount.
func TotalFromBody(body string) (decimal.Decimal, bool) {
	for _, re := range bodyTotalPatterns {
		if m := re.FindStringSubmatch(body); m != nil {
			if d, ok := ParseMoney(m[1]); ok {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}
