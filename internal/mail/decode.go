// Package mail reads receipt e-mails: it walks provider MIME trees, decodes their
// bodies into plain text and talks to the Gmail API.
package mail

import (
	"encoding/base64"
	"html"
	"regexp"
	"strings"
)

var (
	softLineBreak = regexp.MustCompile(`=\r?\n`)
	qpEscape      = regexp.MustCompile(`=([0-9A-Fa-f]{2})`)
	htmlTag       = regexp.MustCompile(`<[^>]*>`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// DecodeBase64URL decodes a provider body encoded with the URL-safe alphabet,
// tolerating missing padding.
func DecodeBase64URL(data string) ([]byte, error) {
	s := strings.NewReplacer("-", "+", "_", "/").Replace(strings.TrimSpace(data))
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return base64.StdEncoding.DecodeString(s)
}

// DecodeQuotedPrintable removes soft line breaks and turns =XX escapes into raw
// bytes. Anything that is not a valid escape is left as is.
func DecodeQuotedPrintable(s string) string {
	s = softLineBreak.ReplaceAllString(s, "")
	return qpEscape.ReplaceAllStringFunc(s, func(m string) string {
		b, ok := hexByte(m[1], m[2])
		if !ok {
			return m
		}
		return string([]byte{b})
	})
}

// StripHTML replaces tags with spaces, decodes entities and collapses whitespace.
func StripHTML(s string) string {
	s = htmlTag.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return CollapseSpace(s)
}

// CollapseSpace folds runs of whitespace into a single space and trims the result.
func CollapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func hexByte(hi, lo byte) (byte, bool) {
	h, ok1 := hexVal(hi)
	l, ok2 := hexVal(lo)
	if !ok1 || !ok2 {
		return 0, false
	}
	return h<<4 | l, true
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
