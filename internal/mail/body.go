package mail

import (
	netmail "net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/Veraticus/nota-flow/internal/model"
)

const (
	// MinBodyLength is the decoded body length below which the subject, sender and
	// snippet are used instead.
	MinBodyLength = 50
	// MinFallbackLength is the length below which a message is not worth extracting.
	MinFallbackLength = 10
)

// ExtractBody walks the MIME tree and concatenates the decoded text of every
// text/plain and text/html part that is not an attachment.
func ExtractBody(part model.MailPart) string {
	var chunks []string
	collectText(part, &chunks)
	return CollapseSpace(strings.Join(chunks, " "))
}

func collectText(part model.MailPart, chunks *[]string) {
	mimeType := strings.ToLower(part.MIMEType)
	if (mimeType == "text/plain" || mimeType == "text/html") && !part.IsAttachment() && part.Body != "" {
		if text := decodePart(part.Body, part.Header("Content-Type")); text != "" {
			*chunks = append(*chunks, text)
		}
	}
	for _, child := range part.Parts {
		collectText(child, chunks)
	}
}

func decodePart(body, contentType string) string {
	raw, err := DecodeBase64URL(body)
	if err != nil {
		return ""
	}
	text := DecodeQuotedPrintable(string(raw))
	return StripHTML(decodeCharset(text, contentType))
}

// decodeCharset converts Latin-1 text to UTF-8. Parts without a declared charset
// are treated as Latin-1 when they are not valid UTF-8, which covers QP escapes
// such as =E7 from senders that omit the header.
func decodeCharset(text, contentType string) string {
	ct := strings.ToLower(contentType)
	latin := strings.Contains(ct, "iso-8859-1") || strings.Contains(ct, "windows-1252")
	if !latin && utf8.ValidString(text) {
		return text
	}
	decoded, err := charmap.Windows1252.NewDecoder().String(text)
	if err != nil {
		return strings.ToValidUTF8(text, "")
	}
	return decoded
}

// Prepared is the text selected for extraction from one message.
type Prepared struct {
	Subject  string
	From     string
	Sender   string
	Snippet  string
	Body     string
	Text     string
	Fallback bool
}

// Prepare decodes the message body and picks the text to send to the extractor.
// A body shorter than MinBodyLength is replaced by subject, sender and snippet; ok is
// false when even that is shorter than MinFallbackLength.
func Prepare(msg *model.MailMessage) (Prepared, bool) {
	p := Prepared{
		Subject: CollapseSpace(msg.Header("Subject")),
		From:    CollapseSpace(msg.Header("From")),
		Snippet: CollapseSpace(StripHTML(msg.Snippet)),
		Body:    ExtractBody(msg.Payload),
	}
	p.Sender = SenderName(p.From)

	if utf8.RuneCountInString(p.Body) >= MinBodyLength {
		p.Text = p.Body
		return p, true
	}

	p.Fallback = true
	p.Text = CollapseSpace(strings.Join([]string{p.Subject, p.From, p.Snippet}, " "))
	return p, utf8.RuneCountInString(p.Text) >= MinFallbackLength
}

// SenderName returns the display name of a "Name" <email> address, or "" when the
// header carries only an address.
func SenderName(from string) string {
	from = strings.TrimSpace(from)
	if from == "" {
		return ""
	}
	if addr, err := netmail.ParseAddress(from); err == nil {
		return CollapseSpace(addr.Name)
	}
	if i := strings.Index(from, "<"); i > 0 {
		return CollapseSpace(strings.Trim(from[:i], `" `))
	}
	return ""
}

// MessageTime returns the Date header when it parses, otherwise the provider's
// internal timestamp, otherwise nil.
func MessageTime(msg *model.MailMessage) *time.Time {
	if date := strings.TrimSpace(msg.Header("Date")); date != "" {
		if t, err := netmail.ParseDate(date); err == nil {
			return &t
		}
	}
	if !msg.InternalDate.IsZero() {
		t := msg.InternalDate
		return &t
	}
	return nil
}
