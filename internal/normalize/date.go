package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/nota-flow/internal/model"
)

const isoLayout = "2006-01-02"

var (
	isoDatePattern = regexp.MustCompile(`(\d{4})[-/](\d{1,2})[-/](\d{1,2})`)
	brDatePattern  = regexp.MustCompile(`(\d{1,2})[-/](\d{1,2})[-/](\d{4})`)
	clockPattern   = regexp.MustCompile(`(\d{1,2})\s*[:hH]\s*(\d{2})(?:\s*:\s*(\d{2}))?`)
)

// NormalizeDate resolves a calendar date in YYYY-MM-DD form. It prefers a native
// timestamp, then an ISO or Brazilian date string, then fallback (the message's own
// timestamp). It returns nil when nothing resolves.
func NormalizeDate(v model.RawValue, fallback *time.Time) *string {
	switch v.Kind {
	case model.ValueTime:
		if !v.Time.IsZero() {
			return ptr(v.Time.Format(isoLayout))
		}
	case model.ValueString:
		if d, ok := ParseDateString(v.String); ok {
			return &d
		}
	}

	if fallback != nil && !fallback.IsZero() {
		return ptr(fallback.Format(isoLayout))
	}
	return nil
}

// ParseDateString finds an ISO (YYYY-MM-DD, YYYY/MM/DD) or Brazilian (DD-MM-YYYY,
// DD/MM/YYYY) date in s and returns it in ISO form.
func ParseDateString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		if d, ok := buildDate(m[1], m[2], m[3]); ok {
			return d, true
		}
	}
	if m := brDatePattern.FindStringSubmatch(s); m != nil {
		if d, ok := buildDate(m[3], m[2], m[1]); ok {
			return d, true
		}
	}
	return "", false
}

func buildDate(year, month, day string) (string, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return t.Format(isoLayout), true
}

// NormalizeTime accepts H:MM, HH:MM and HH:MM:SS, with "h" allowed between hours
// and minutes, and returns HH:MM:SS. Unparseable input yields nil.
func NormalizeTime(s string) *string {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil
	}

	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	sec := 0
	if m[3] != "" {
		sec, _ = strconv.Atoi(m[3])
	}
	if h > 23 || mi > 59 || sec > 59 {
		return nil
	}
	return ptr(fmt.Sprintf("%02d:%02d:%02d", h, mi, sec))
}

func ptr(s string) *string {
	return &s
}
