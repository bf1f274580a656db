package timeseries

import (
	"fmt"
	"strings"
	"time"
)

// Period is a calendar bucket. All boundaries are computed in UTC.
type Period string

const (
	Day   Period = "day"
	Week  Period = "week" // Monday-anchored
	Month Period = "month"
)

// ParsePeriod validates a period name. Empty means Week.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return Week, nil
	case Day, Week, Month:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q (want day, week or month)", s)
	}
}

// Start returns the start of the period containing t.
func (p Period) Start(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch p {
	case Day:
		return day
	case Month:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		offset := (int(day.Weekday()) + 6) % 7 // days since Monday
		return day.AddDate(0, 0, -offset)
	}
}

// Next returns the start of the period after the one starting at start.
func (p Period) Next(start time.Time) time.Time {
	switch p {
	case Day:
		return start.AddDate(0, 0, 1)
	case Month:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 7)
	}
}

// Range returns every period start from the period of first through the
// period of last, inclusive and without gaps.
func (p Period) Range(first, last time.Time) []time.Time {
	end := p.Start(last)
	var out []time.Time
	for cur := p.Start(first); !cur.After(end); cur = p.Next(cur) {
		out = append(out, cur)
	}
	return out
}
