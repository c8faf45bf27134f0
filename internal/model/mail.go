package model

import (
	"strings"
	"time"
)

// MailPart is one node of a MIME tree as delivered by the mail provider. Body holds
// the provider's base64url-encoded payload; multipart containers carry Parts instead.
type MailPart struct {
	Headers  map[string]string
	MIMEType string
	Filename string
	Body     string
	Parts    []MailPart
}

// IsAttachment reports whether the part is a named attachment.
func (p MailPart) IsAttachment() bool {
	return strings.TrimSpace(p.Filename) != ""
}

// Header returns the part header matching name, case-insensitively.
func (p MailPart) Header(name string) string {
	for k, v := range p.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// MailMessage is a fully fetched message.
type MailMessage struct {
	InternalDate time.Time
	ID           string
	ThreadID     string
	Snippet      string
	Payload      MailPart
}

// Header returns the first top-level header matching name, case-insensitively.
func (m *MailMessage) Header(name string) string {
	return m.Payload.Header(name)
}
