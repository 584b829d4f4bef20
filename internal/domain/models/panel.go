package models

import (
	"sort"
	"time"
)

// Bar is one daily OHLCV observation for a single ticker.
type Bar struct {
	Date     time.Time `json:"date"`
	Ticker   string    `json:"ticker"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   float64   `json:"volume"`
}

// PricePanel is a long-format price history keyed by (date, ticker).
// It is immutable once built; window access goes through Slice.
type PricePanel struct {
	dates   []time.Time
	tickers []string
	series  map[string][]Bar // per ticker, date ascending
}

// NewPricePanel builds a panel from unordered bars. Duplicate (date, ticker)
// pairs keep the last occurrence.
func NewPricePanel(bars []Bar) *PricePanel {
	series := make(map[string][]Bar)
	seen := make(map[string]map[time.Time]int)
	for _, b := range bars {
		if seen[b.Ticker] == nil {
			seen[b.Ticker] = make(map[time.Time]int)
		}
		if i, ok := seen[b.Ticker][b.Date]; ok {
			series[b.Ticker][i] = b
			continue
		}
		seen[b.Ticker][b.Date] = len(series[b.Ticker])
		series[b.Ticker] = append(series[b.Ticker], b)
	}

	dateSet := make(map[time.Time]struct{})
	tickers := make([]string, 0, len(series))
	for tk, bs := range series {
		sort.Slice(bs, func(i, j int) bool { return bs[i].Date.Before(bs[j].Date) })
		series[tk] = bs
		tickers = append(tickers, tk)
		for _, b := range bs {
			dateSet[b.Date] = struct{}{}
		}
	}
	sort.Strings(tickers)

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	return &PricePanel{dates: dates, tickers: tickers, series: series}
}

// IsEmpty reports whether the panel holds no observations.
func (p *PricePanel) IsEmpty() bool { return p == nil || len(p.dates) == 0 }

// Dates returns the sorted unique trading dates.
func (p *PricePanel) Dates() []time.Time { return p.dates }

// Tickers returns the sorted ticker universe.
func (p *PricePanel) Tickers() []string { return p.tickers }

// Start returns the earliest trading date.
func (p *PricePanel) Start() time.Time { return p.dates[0] }

// End returns the latest trading date.
func (p *PricePanel) End() time.Time { return p.dates[len(p.dates)-1] }

// Series returns the date-ascending bars for one ticker.
func (p *PricePanel) Series(ticker string) []Bar { return p.series[ticker] }

// Slice returns the sub-panel with from <= date < to. The half-open upper
// bound is what keeps rebalance-date data out of estimation windows.
func (p *PricePanel) Slice(from, to time.Time) *PricePanel {
	return p.slice(func(d time.Time) bool { return !d.Before(from) && d.Before(to) })
}

// SliceInclusive returns the sub-panel with from <= date <= to, used for
// holding-period return accumulation.
func (p *PricePanel) SliceInclusive(from, to time.Time) *PricePanel {
	return p.slice(func(d time.Time) bool { return !d.Before(from) && !d.After(to) })
}

func (p *PricePanel) slice(keep func(time.Time) bool) *PricePanel {
	series := make(map[string][]Bar, len(p.series))
	dateSet := make(map[time.Time]struct{})
	tickers := make([]string, 0, len(p.tickers))
	for _, tk := range p.tickers {
		var bs []Bar
		for _, b := range p.series[tk] {
			if keep(b.Date) {
				bs = append(bs, b)
				dateSet[b.Date] = struct{}{}
			}
		}
		if len(bs) > 0 {
			series[tk] = bs
			tickers = append(tickers, tk)
		}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return &PricePanel{dates: dates, tickers: tickers, series: series}
}

// AdjCloseSeries returns parallel date/price slices of adjusted closes for
// one ticker, date ascending.
func (p *PricePanel) AdjCloseSeries(ticker string) ([]time.Time, []float64) {
	bs := p.series[ticker]
	if len(bs) == 0 {
		return nil, nil
	}
	dates := make([]time.Time, len(bs))
	prices := make([]float64, len(bs))
	for i, b := range bs {
		dates[i] = b.Date
		prices[i] = b.AdjClose
	}
	return dates, prices
}

// CountObservations returns the number of bars present for a ticker.
func (p *PricePanel) CountObservations(ticker string) int { return len(p.series[ticker]) }

// Bars flattens the panel back to long format, date-major.
func (p *PricePanel) Bars() []Bar {
	out := make([]Bar, 0, len(p.dates)*len(p.tickers))
	for _, tk := range p.tickers {
		out = append(out, p.series[tk]...)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out
}
