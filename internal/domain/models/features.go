package models

import (
	"sort"
	"time"
)

// FeatureRow is the indicator vector for one (date, ticker) observation.
// Values follow the table's Names order; NaN marks a missing value.
type FeatureRow struct {
	Date   time.Time
	Ticker string
	Values []float64
}

// FeatureTable is a monthly per-(date, ticker) indicator table. It is
// recomputed fresh for every estimation window and never shared across
// windows.
type FeatureTable struct {
	Names []string
	Rows  []FeatureRow
}

// IsEmpty reports whether the table holds no rows.
func (t *FeatureTable) IsEmpty() bool { return t == nil || len(t.Rows) == 0 }

// Dates returns the sorted unique observation dates.
func (t *FeatureTable) Dates() []time.Time {
	set := make(map[time.Time]struct{})
	for _, r := range t.Rows {
		set[r.Date] = struct{}{}
	}
	out := make([]time.Time, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// At returns the rows observed on a given date, ticker ascending.
func (t *FeatureTable) At(date time.Time) []FeatureRow {
	var out []FeatureRow
	for _, r := range t.Rows {
		if r.Date.Equal(date) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// Latest returns the most recent observation date and its rows.
func (t *FeatureTable) Latest() (time.Time, []FeatureRow) {
	if t.IsEmpty() {
		return time.Time{}, nil
	}
	var latest time.Time
	for _, r := range t.Rows {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	return latest, t.At(latest)
}
