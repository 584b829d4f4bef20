package util

import (
	"sort"
	"time"
)

// DateLayout is the wire format for calendar dates across the API.
const DateLayout = "2006-01-02"

// ParseDate tries YYYY-MM-DD, RFC3339, and RFC3339Nano. Returns (t, true) if any worked.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// FormatDate renders a date in the wire format.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// AddMonths shifts a date by n calendar months, clamping the day of month
// so that e.g. Jan 31 + 1 month is Feb 28/29 rather than Mar 2/3.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := daysInMonth(first.Year(), first.Month())
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

func daysInMonth(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// SnapToTradingDate returns the first date in the sorted slice that is
// on or after target, and whether one exists.
func SnapToTradingDate(dates []time.Time, target time.Time) (time.Time, bool) {
	i := sort.Search(len(dates), func(i int) bool { return !dates[i].Before(target) })
	if i == len(dates) {
		return time.Time{}, false
	}
	return dates[i], true
}

// YearsBetween returns the elapsed time in trading years assuming the
// given number of bars per year.
func YearsBetween(nBars int, barsPerYear float64) float64 {
	if barsPerYear <= 0 {
		return 0
	}
	return float64(nBars) / barsPerYear
}
