package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/nota-flow/internal/model"
	"github.com/Veraticus/nota-flow/internal/nfce"
)

// FormatBRL renders an amount as Brazilian reais, e.g. "R$ 1.234,56".
func FormatBRL(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%sR$ %s,%s", sign, b.String(), frac)
}

// RenderSyncStats summarizes a sync run. Per-message reasons are listed only for
// messages that were not imported.
func RenderSyncStats(stats model.SyncStats, verbose bool) string {
	lines := []string{
		fmt.Sprintf("Window:     %d days", stats.WindowDays),
		fmt.Sprintf("Candidates: %d", stats.Candidates),
		OutcomeStyle(model.OutcomeProcessed).Render(fmt.Sprintf("Imported:   %d", stats.Processed)),
		OutcomeStyle(model.OutcomeDuplicate).Render(fmt.Sprintf("Duplicates: %d", stats.Duplicates)),
		OutcomeStyle(model.OutcomeRejected).Render(fmt.Sprintf("Rejected:   %d", stats.Rejected)),
		OutcomeStyle(model.OutcomeSkipped).Render(fmt.Sprintf("Skipped:    %d", stats.Skipped)),
	}
	errLine := fmt.Sprintf("Errors:     %d", stats.Errored)
	if stats.Errored > 0 {
		errLine = OutcomeStyle(model.OutcomeErrored).Render(errLine)
	}
	lines = append(lines, errLine)

	if verbose {
		for _, o := range stats.Outcomes {
			if o.Kind == model.OutcomeProcessed || o.Kind == model.OutcomeDuplicate {
				continue
			}
			lines = append(lines, OutcomeStyle(o.Kind).Render(fmt.Sprintf("  %s %s: %s", o.ExternalID, o.Kind, o.Reason)))
		}
	}

	return renderSummary(MailIcon+" Sync summary", strings.Join(lines, "\n"))
}

// RenderTransaction shows every field of a transaction and its items.
func RenderTransaction(txn *model.Transaction) string {
	lines := []string{
		field("ID", txn.ID),
		field("Merchant", txn.MerchantName),
		field("Total", AmountStyle.Render(FormatBRL(txn.TotalAmount))),
	}
	if !txn.SubtotalAmount.Equal(txn.TotalAmount) {
		lines = append(lines, field("Subtotal", FormatBRL(txn.SubtotalAmount)))
	}
	if !txn.DiscountAmount.IsZero() {
		lines = append(lines, field("Discount", FormatBRL(txn.DiscountAmount)))
	}
	lines = append(lines,
		field("Date", optional(txn.OccurredOn)),
		field("Time", optional(txn.OccurredAt)),
		field("Category", optional(txn.Category)),
		field("Payment", optional(txn.PaymentMethod)),
		field("CNPJ", optional(txn.TaxID)),
		field("Origin", OriginLabel(txn.Origin)),
	)
	if txn.AccessKey != nil {
		lines = append(lines, field("Access key", *txn.AccessKey))
	}

	if len(txn.Items) > 0 {
		lines = append(lines, "", HeadingStyle.Render("Items"))
		for _, item := range txn.Items {
			qty := item.Quantity.String()
			if item.Unit != nil {
				qty += " " + *item.Unit
			}
			lines = append(lines, fmt.Sprintf("  %s × %s  %s", qty, item.Description, FormatBRL(item.TotalPrice)))
		}
	}

	return renderReceipt(ReceiptIcon+" "+txn.MerchantName, strings.Join(lines, "\n"))
}

// RenderTransactionTable lists transactions one per row.
func RenderTransactionTable(txns []model.Transaction) string {
	if len(txns) == 0 {
		return LabelStyle.Render("No transactions.")
	}

	headers := []string{"ID", "Date", "Merchant", "Total", "Category", "Origin"}
	rows := make([][]string, 0, len(txns))
	for _, txn := range txns {
		rows = append(rows, []string{
			txn.ID,
			optional(txn.OccurredOn),
			truncate(txn.MerchantName, 32),
			FormatBRL(txn.TotalAmount),
			optional(txn.Category),
			OriginLabel(txn.Origin),
		})
	}

	columns := make([]string, len(headers))
	for c, h := range headers {
		cells := []string{TableHeaderStyle.Render(h)}
		for _, row := range rows {
			style := TableCellStyle
			if c == 3 {
				style = style.Align(lipgloss.Right)
			}
			cells = append(cells, style.Render(row[c]))
		}
		columns[c] = lipgloss.JoinVertical(lipgloss.Left, cells...)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

// RenderNFCePreview shows what was read from a portal page for review.
func RenderNFCePreview(res nfce.Result) string {
	lines := []string{
		field("Merchant", res.MerchantName),
		field("CNPJ", res.TaxID),
		field("Date", res.Date),
		field("Total", res.TotalAmount),
		field("Access key", res.AccessKey),
		field("URL", res.URL),
	}
	for _, item := range res.Items {
		lines = append(lines, fmt.Sprintf("  %s  R$ %s", item.Description, item.Price))
	}
	if res.Message != "" {
		lines = append(lines, "", OutcomeStyle(model.OutcomeRejected).Render(res.Message))
	}
	return renderSummary(ReceiptIcon+" NFC-e", strings.Join(lines, "\n"))
}

func field(label, value string) string {
	if value == "" {
		value = "-"
	}
	return LabelStyle.Render(fmt.Sprintf("%-11s", label+":")) + " " + value
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
