// Package nfce reads Brazilian electronic consumer invoices (NFC-e) from the state
// tax portals their QR codes point to.
package nfce

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidQRCode is returned when a payload carries neither a portal URL nor an access key.
var ErrInvalidQRCode = errors.New("invalid NFC-e QR code")

var accessKeyPattern = regexp.MustCompile(`\d{44}`)

// QRCode is a decoded NFC-e QR payload.
type QRCode struct {
	URL       string
	AccessKey string
}

// ParseQRCode accepts either the full portal URL printed in the QR code or the bare
// "p=" parameter. A bare payload is resolved against portal.
func ParseQRCode(payload, portal string) (QRCode, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return QRCode{}, fmt.Errorf("%w: empty payload", ErrInvalidQRCode)
	}

	if strings.HasPrefix(strings.ToLower(payload), "http://") || strings.HasPrefix(strings.ToLower(payload), "https://") {
		u, err := url.Parse(payload)
		if err != nil || u.Host == "" {
			return QRCode{}, fmt.Errorf("%w: %q is not a URL", ErrInvalidQRCode, payload)
		}
		key := u.Query().Get("p")
		if key == "" {
			key = u.Query().Get("chNFe")
		}
		if key == "" {
			key = u.RawQuery
		}
		return QRCode{URL: u.String(), AccessKey: findAccessKey(key)}, nil
	}

	param := strings.TrimPrefix(payload, "p=")
	key := findAccessKey(param)
	if key == "" {
		return QRCode{}, fmt.Errorf("%w: no access key in payload", ErrInvalidQRCode)
	}
	if portal == "" {
		return QRCode{}, fmt.Errorf("%w: bare payload needs a portal URL", ErrInvalidQRCode)
	}

	sep := "?"
	if strings.Contains(portal, "?") {
		sep = "&"
	}
	return QRCode{URL: portal + sep + "p=" + param, AccessKey: key}, nil
}

func findAccessKey(s string) string {
	return accessKeyPattern.FindString(strings.ReplaceAll(s, " ", ""))
}
