package nfce

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/Veraticus/nota-flow/internal/mail"
	"github.com/Veraticus/nota-flow/internal/model"
)

const (
	maxItems       = 50
	itemKeyRunes   = 40
	minMerchantLen = 2
	maxMerchantLen = 200
)

var (
	labeledTotal = regexp.MustCompile(`(?i)(?:valor\s+total|total\s+da\s+nota|valor\s+a\s+pagar)[^\d]{0,40}?(\d{1,3}(?:\.\d{3})*,\d{2}|\d+[.,]\d{2})`)
	currencyAmt  = regexp.MustCompile(`R\$\s*(\d{1,3}(?:\.\d{3})*,\d{2}|\d+[.,]\d{2})`)
	brDate       = regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`)
	cnpjPattern  = regexp.MustCompile(`\b\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}\b`)

	labeledMerchant = regexp.MustCompile(`(?is)(?:raz[ãa]o\s+social|nome\s+fantasia)\s*:?\s*(?:<[^>]*>\s*)*([^<]+)`)
	headingPattern  = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	titlePattern    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

	rowPattern   = regexp.MustCompile(`(?is)<tr[^>]*>(.*?)</tr>`)
	cellPattern  = regexp.MustCompile(`(?is)<t[dh][^>]*>(.*?)</t[dh]>`)
	productCode  = regexp.MustCompile(`(?i)\(\s*c[óo]digo\s*:?\s*\d*\s*\)`)
	accessKeyRaw = regexp.MustCompile(`(?:\d{4}\s?){11}`)
)

// Item is a product row as printed on the portal.
type Item struct {
	Description string `json:"description"`
	Price       string `json:"price"`
}

// Result is what could be read from a portal page. Every field is best effort and
// meant to be reviewed by the user before saving. Scraped is false when the page
// could not be fetched at all.
type Result struct {
	MerchantName string `json:"merchant_name"`
	TaxID        string `json:"cnpj"`
	Date         string `json:"date"`
	TotalAmount  string `json:"total_amount"`
	AccessKey    string `json:"access_key"`
	URL          string `json:"url"`
	Message      string `json:"message,omitempty"`
	Items        []Item `json:"items"`
	Scraped      bool   `json:"scraped"`
}

// Extract runs the ordered regex passes over a portal page.
func Extract(page string) Result {
	text := mail.StripHTML(page)

	res := Result{
		MerchantName: extractMerchant(page),
		TaxID:        cnpjPattern.FindString(text),
		Date:         brDate.FindString(text),
		TotalAmount:  extractTotal(text),
		Items:        extractItems(page),
		Scraped:      true,
	}
	if m := accessKeyRaw.FindString(text); m != "" {
		res.AccessKey = strings.ReplaceAll(m, " ", "")
	}
	if res.MerchantName == "" && res.TotalAmount == "" {
		res.Message = ManualEntryMessage
	}
	return res
}

// extractTotal prefers a labeled total and otherwise takes the last R$ amount on
// the page, which can be a subtotal or discount on poorly labeled pages.
func extractTotal(text string) string {
	if m := labeledTotal.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	all := currencyAmt.FindAllStringSubmatch(text, -1)
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1][1]
}

func extractMerchant(page string) string {
	candidates := []*regexp.Regexp{labeledMerchant, headingPattern, titlePattern}
	for _, re := range candidates {
		m := re.FindStringSubmatch(page)
		if m == nil {
			continue
		}
		name := mail.StripHTML(m[1])
		if n := len([]rune(name)); n >= minMerchantLen && n <= maxMerchantLen {
			return name
		}
	}
	return ""
}

func extractItems(page string) []Item {
	var items []Item
	seen := make(map[string]bool)

	for _, row := range rowPattern.FindAllStringSubmatch(page, maxItems) {
		var desc, price string
		for _, cell := range cellPattern.FindAllStringSubmatch(row[1], -1) {
			text := mail.StripHTML(cell[1])
			if m := currencyAmt.FindAllStringSubmatch(text, -1); len(m) > 0 {
				price = m[len(m)-1][1]
				continue
			}
			if desc == "" && hasLetter(text) {
				desc = mail.CollapseSpace(productCode.ReplaceAllString(text, ""))
			}
		}
		if desc == "" || price == "" {
			continue
		}

		key := truncateRunes(desc, itemKeyRunes) + "|" + price
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, Item{Description: desc, Price: price})
	}
	return items
}

// Extraction adapts the scrape for the normalizer. An unreadable page becomes an
// unavailable extraction.
func (r Result) Extraction() model.Extraction {
	if !r.Scraped {
		return model.UnavailableExtraction(errPageUnavailable)
	}

	items := make([]model.RawItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, model.RawItem{
			Description: it.Description,
			TotalPrice:  optional(it.Price),
		})
	}

	return model.ValidExtraction(model.ExtractionResult{
		MerchantName: optional(r.MerchantName),
		TaxID:        optional(r.TaxID),
		Date:         optional(r.Date),
		Total:        optional(r.TotalAmount),
		AccessKey:    optional(r.AccessKey),
		Items:        items,
	})
}

func optional(s string) model.RawValue {
	if strings.TrimSpace(s) == "" {
		return model.RawValue{}
	}
	return model.StringValue(s)
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
