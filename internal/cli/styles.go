// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/nota-flow/internal/model"
)

// Palette. Receipts are printed on thermal paper, so the theme stays close to
// ink on paper with color reserved for sync outcomes.
var (
	InkColor      = lipgloss.Color("#E8E4D8")
	FadedInkColor = lipgloss.Color("#7A776E")
	ImportedColor = lipgloss.Color("#2ECC71")
	RejectedColor = lipgloss.Color("#F5B041")
	ErrorColor    = lipgloss.Color("#E74C3C")
	NoticeColor   = lipgloss.Color("#5DADE2")
)

var (
	LabelStyle   = lipgloss.NewStyle().Foreground(FadedInkColor)
	HeadingStyle = lipgloss.NewStyle().Bold(true).Foreground(InkColor)

	// AmountStyle right-aligns money so columns of totals line up.
	AmountStyle = lipgloss.NewStyle().Bold(true).Align(lipgloss.Right)

	// ReceiptStyle frames a single transaction like a till slip.
	ReceiptStyle = lipgloss.NewStyle().
			Border(receiptBorder).
			BorderForeground(FadedInkColor).
			Padding(0, 2)

	// SummaryStyle frames run summaries (sync, NFC-e preview).
	SummaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(FadedInkColor).
			Padding(0, 1)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				PaddingRight(2).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(FadedInkColor)

	TableCellStyle = lipgloss.NewStyle().PaddingRight(2)
)

// receiptBorder has torn-paper edges at top and bottom.
var receiptBorder = lipgloss.Border{
	Top:         "╌",
	Bottom:      "╌",
	Left:        "│",
	Right:       "│",
	TopLeft:     "┌",
	TopRight:    "┐",
	BottomLeft:  "└",
	BottomRight: "┘",
}

var outcomeStyles = map[model.OutcomeKind]lipgloss.Style{
	model.OutcomeProcessed: lipgloss.NewStyle().Foreground(ImportedColor),
	model.OutcomeDuplicate: lipgloss.NewStyle().Foreground(FadedInkColor),
	model.OutcomeSkipped:   lipgloss.NewStyle().Foreground(FadedInkColor),
	model.OutcomeRejected:  lipgloss.NewStyle().Foreground(RejectedColor),
	model.OutcomeErrored:   lipgloss.NewStyle().Foreground(ErrorColor),
}

// OutcomeStyle returns the style for a sync outcome line.
func OutcomeStyle(kind model.OutcomeKind) lipgloss.Style {
	if s, ok := outcomeStyles[kind]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	ReceiptIcon = "🧾"
	MailIcon    = "📬"
)

var originIcons = map[model.Origin]string{
	model.OriginEmail:        MailIcon,
	model.OriginScannedImage: "📷",
	model.OriginScrapedHTML:  "🔗",
	model.OriginManual:       "✍️",
}

// OriginLabel prefixes an origin with its icon, e.g. "📷 scanned-image".
func OriginLabel(origin model.Origin) string {
	if icon, ok := originIcons[origin]; ok {
		return icon + " " + string(origin)
	}
	return string(origin)
}

func FormatSuccess(message string) string {
	return OutcomeStyle(model.OutcomeProcessed).Render(SuccessIcon + " " + message)
}

func FormatError(message string) string {
	return OutcomeStyle(model.OutcomeErrored).Render(ErrorIcon + " " + message)
}

func FormatWarning(message string) string {
	return OutcomeStyle(model.OutcomeRejected).Render(WarningIcon + " " + message)
}

func FormatInfo(message string) string {
	return lipgloss.NewStyle().Foreground(NoticeColor).Render(InfoIcon + " " + message)
}

// FormatPrompt formats a question awaiting input.
func FormatPrompt(prompt string) string {
	return HeadingStyle.Render(prompt + " → ")
}

func renderReceipt(title, content string) string {
	return ReceiptStyle.Render(lipgloss.JoinVertical(lipgloss.Left, HeadingStyle.Render(title), "", content))
}

func renderSummary(title, content string) string {
	return SummaryStyle.Render(lipgloss.JoinVertical(lipgloss.Left, HeadingStyle.Render(title), content))
}
