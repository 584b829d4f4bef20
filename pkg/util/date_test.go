package util

import (
	"testing"
	"time"
)

func TestParseDateCalendar(t *testing.T) {
	got, ok := ParseDate("2024-10-10")
	if !ok {
		t.Fatalf("expected ok")
	}
	if FormatDate(got) != "2024-10-10" {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseDateRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseDate(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestAddMonthsClampsDay(t *testing.T) {
	jan31 := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)
	got := AddMonths(jan31, 1)
	if got.Month() != time.February || got.Day() != 28 {
		t.Fatalf("expected 2023-02-28, got %v", got)
	}
}

func TestAddMonthsNegative(t *testing.T) {
	mar15 := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	got := AddMonths(mar15, -24)
	want := time.Date(2022, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSnapToTradingDate(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
	}
	got, ok := SnapToTradingDate(dates, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	if !ok || got.Day() != 8 {
		t.Fatalf("expected snap to Jan 8, got %v ok=%v", got, ok)
	}
	if _, ok := SnapToTradingDate(dates, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)); ok {
		t.Fatalf("expected no snap past range")
	}
}
