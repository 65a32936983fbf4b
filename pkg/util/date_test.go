package util

import (
	"testing"
	"time"
)

func TestParseTradingDate(t *testing.T) {
	got, err := ParseTradingDate("2024-10-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year() != 2024 || got.Month() != time.October || got.Day() != 10 {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseTradingDateRejectsGarbage(t *testing.T) {
	if _, err := ParseTradingDate("10/10/2024"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMonthsBeforeClampsDay(t *testing.T) {
	may31 := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	got := MonthsBefore(may31, 3)
	want := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestResolveDateRangeDefaults(t *testing.T) {
	now := time.Date(2025, 6, 15, 13, 30, 0, 0, time.UTC)
	start, end, err := ResolveDateRange("", "", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if FormatTradingDate(end) != "2025-06-15" {
		t.Fatalf("unexpected end %v", end)
	}
	if FormatTradingDate(start) != "2025-03-15" {
		t.Fatalf("unexpected start %v", start)
	}
}

func TestResolveDateRangeRejectsInverted(t *testing.T) {
	now := time.Now()
	if _, _, err := ResolveDateRange("2025-02-01", "2025-01-01", now); err == nil {
		t.Fatalf("expected error for inverted range")
	}
}
