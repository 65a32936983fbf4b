package util

import (
	"fmt"
	"time"
)

// TradingDateLayout is the wire format for trading dates.
const TradingDateLayout = "2006-01-02"

// ParseTradingDate parses a YYYY-MM-DD date. Time of day is midnight UTC.
func ParseTradingDate(s string) (time.Time, error) {
	t, err := time.Parse(TradingDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse trading date %q: %w", s, err)
	}
	return t, nil
}

// ParseTradingDateDefault parses a trading date or returns default if empty/invalid.
func ParseTradingDateDefault(s string, def time.Time) time.Time {
	if s == "" {
		return def
	}
	t, err := ParseTradingDate(s)
	if err != nil {
		return def
	}
	return t
}

// FormatTradingDate renders t as YYYY-MM-DD in UTC.
func FormatTradingDate(t time.Time) string {
	return t.UTC().Format(TradingDateLayout)
}

// MonthsBefore returns t shifted back by n calendar months, clamped so that
// e.g. May 31 minus 3 months yields Feb 28/29 rather than rolling into March.
func MonthsBefore(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m-time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

// ResolveDateRange applies the default range: end defaults to today, start
// defaults to three months before end. Errors when start is after end.
func ResolveDateRange(startStr, endStr string, now time.Time) (time.Time, time.Time, error) {
	end := now.UTC().Truncate(24 * time.Hour)
	if endStr != "" {
		t, err := ParseTradingDate(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = t
	}
	start := MonthsBefore(end, 3)
	if startStr != "" {
		t, err := ParseTradingDate(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = t
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start date %s after end date %s",
			FormatTradingDate(start), FormatTradingDate(end))
	}
	return start, end, nil
}
