package model

import "time"

// Origin identifies where a candidate transaction came from.
type Origin string

const (
	// OriginEmail is a receipt found in the user's mailbox.
	OriginEmail Origin = "email"
	// OriginScannedImage is a photo of a paper receipt sent through OCR.
	OriginScannedImage Origin = "scanned-image"
	// OriginScrapedHTML is an NFC-e page fetched from a tax-authority portal.
	OriginScrapedHTML Origin = "scraped-html"
	// OriginManual is a transaction typed in by the user.
	OriginManual Origin = "manual"
)

// Valid reports whether o is a known origin.
func (o Origin) Valid() bool {
	switch o {
	case OriginEmail, OriginScannedImage, OriginScrapedHTML, OriginManual:
		return true
	default:
		return false
	}
}

// RawSource is one candidate input before extraction. It is never persisted.
type RawSource struct {
	ReceivedAt    time.Time
	Origin        Origin
	ExternalID    string // empty for manual, scanned and scraped sources
	RawText       string
	ImageMIMEType string
	RawImage      []byte
}

// HasExternalID reports whether the source carries a stable identity usable for dedup.
func (s RawSource) HasExternalID() bool {
	return s.ExternalID != ""
}
