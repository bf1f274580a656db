package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DateColumns lists the accepted date columns in lookup order. Only the
// first one present in a file is used.
var DateColumns = []string{"created_utc", "date", "timestamp", "created"}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
	"2006/01/02",
	"01/02/2006",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseDate parses a date cell. created_utc holds unix seconds; the other
// columns hold textual dates. Results are in UTC; ok is false when the cell
// cannot be parsed.
func ParseDate(column, value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if column == "created_utc" {
		return parseUnix(value)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseUnix(value string) (time.Time, bool) {
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, false
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), true
}
