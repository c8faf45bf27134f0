package pipeline

import (
	"math"
	"time"
)

// DefaultFirstSyncDays is the trailing window scanned when a user has never synced.
const DefaultFirstSyncDays = 30

// ScanWindowDays returns how many days back a sync should look. Without a previous
// sync it returns firstSyncDays. Otherwise the window covers the time since the last
// sync rounded up to whole days plus one, so consecutive windows always overlap.
func ScanWindowDays(now time.Time, last *time.Time, firstSyncDays int) int {
	if firstSyncDays <= 0 {
		firstSyncDays = DefaultFirstSyncDays
	}
	if last == nil || last.IsZero() {
		return firstSyncDays
	}

	elapsed := now.Sub(*last).Hours() / 24
	days := int(math.Ceil(elapsed)) + 1
	if days < 1 {
		return 1
	}
	return days
}
