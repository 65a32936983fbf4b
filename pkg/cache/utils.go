package cache

import (
	"fmt"
	"strings"
)

// Key joins parts into a colon-separated cache key.
func Key(parts ...interface{}) string {
	segs := make([]string, len(parts))
	for i, p := range parts {
		segs[i] = fmt.Sprintf("%v", p)
	}
	return strings.Join(segs, ":")
}

// BarsKey builds the cache key for a ticker's daily bars over a date range.
func BarsKey(ticker, start, end string) string {
	return Key("bars", ticker, start, end)
}

// MetricsKey builds the cache key for a ticker's fundamental metrics snapshot.
func MetricsKey(ticker, asOf string) string {
	return Key("metrics", ticker, asOf)
}

// InsiderKey builds the cache key for a ticker's insider trades over a date range.
func InsiderKey(ticker, start, end string) string {
	return Key("insider", ticker, start, end)
}
