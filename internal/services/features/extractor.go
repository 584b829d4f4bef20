package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"AlphaWalk/internal/domain/models"
	applogger "AlphaWalk/pkg/logger"
)

const (
	rsiWindow = 20
	bbWindow  = 20
	bbDev     = 2.0
	atrWindow = 14
	macdFast  = 12
	macdSlow  = 26

	outlierCutoff = 0.005

	liquidityRollMonths = 24
	liquidityMinMonths  = 12
)

var returnLags = []int{1, 2, 3, 6, 9, 12}

// FeatureNames is the column order of every produced table.
var FeatureNames = []string{
	"garman_klass_vol",
	"rsi",
	"bb_low",
	"bb_mid",
	"bb_high",
	"atr",
	"macd",
	"return_1m",
	"return_2m",
	"return_3m",
	"return_6m",
	"return_9m",
	"return_12m",
}

// Option configures Extractor.
type Option func(*Extractor)

// WithUniverseCap sets the liquidity filter size. The filter only engages
// when the input universe is larger than the cap.
func WithUniverseCap(cap int) Option {
	return func(e *Extractor) {
		e.universeCap = cap
	}
}

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(e *Extractor) {
		e.l = l
	}
}

// Extractor turns a daily price panel into a month-end indicator table.
// Tables are computed fresh per estimation window; no state survives a call.
type Extractor struct {
	universeCap int
	l           *applogger.Logger
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{universeCap: 100}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type tickerMonthly struct {
	dates     []time.Time
	rows      [][]float64
	dollarVol []float64
}

// Compute builds the feature table for whatever slice it is handed. Window
// semantics (what the slice may contain) are the caller's responsibility.
func (e *Extractor) Compute(panel *models.PricePanel) (*models.FeatureTable, error) {
	if panel.IsEmpty() {
		return nil, fmt.Errorf("%w: empty price panel", models.ErrDataInsufficiency)
	}

	began := time.Now()
	monthly := make(map[string]*tickerMonthly, len(panel.Tickers()))
	for _, tk := range panel.Tickers() {
		if m := e.computeTicker(panel.Series(tk)); m != nil {
			monthly[tk] = m
		}
	}

	keep := e.liquidityFilter(monthly)

	table := &models.FeatureTable{Names: FeatureNames}
	for tk, m := range monthly {
		for i, d := range m.dates {
			if !keep(tk, d) {
				continue
			}
			if hasNaN(m.rows[i]) {
				continue
			}
			table.Rows = append(table.Rows, models.FeatureRow{
				Date:   d,
				Ticker: tk,
				Values: m.rows[i],
			})
		}
	}

	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("%w: no complete feature rows", models.ErrDataInsufficiency)
	}

	sort.Slice(table.Rows, func(i, j int) bool {
		if !table.Rows[i].Date.Equal(table.Rows[j].Date) {
			return table.Rows[i].Date.Before(table.Rows[j].Date)
		}
		return table.Rows[i].Ticker < table.Rows[j].Ticker
	})

	if e.l != nil {
		e.l.Debug("features computed",
			applogger.Int("tickers", len(monthly)),
			applogger.Int("rows", len(table.Rows)),
			applogger.Duration("duration_ms", time.Since(began)),
		)
	}
	return table, nil
}

func (e *Extractor) computeTicker(bars []models.Bar) *tickerMonthly {
	n := len(bars)
	if n < 2 {
		return nil
	}

	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	clos := make([]float64, n)
	adj := make([]float64, n)
	vol := make([]float64, n)
	for i, b := range bars {
		open[i], high[i], low[i] = b.Open, b.High, b.Low
		clos[i], adj[i], vol[i] = b.Close, b.AdjClose, b.Volume
	}

	gk := make([]float64, n)
	dollarVol := make([]float64, n)
	for i := 0; i < n; i++ {
		gk[i] = GarmanKlassVol(open[i], high[i], low[i], adj[i])
		dollarVol[i] = adj[i] * vol[i] / 1e6
	}

	rsi := RSI(adj, rsiWindow)
	bbLow, bbMid, bbHigh := Bollinger(adj, bbWindow, bbDev)
	atr := ZScore(ATR(high, low, clos, atrWindow))
	macd := ZScore(MACDLine(adj, macdFast, macdSlow))

	lagged := make([][]float64, len(returnLags))
	for li, lag := range returnLags {
		lagged[li] = LagReturns(adj, lag, outlierCutoff)
	}

	// month-end sampling: indicators take the month's last bar, dollar
	// volume takes the month's mean
	out := &tickerMonthly{}
	i := 0
	for i < n {
		j := i
		for j+1 < n && sameMonth(bars[j+1].Date, bars[i].Date) {
			j++
		}

		var dvSum float64
		for k := i; k <= j; k++ {
			dvSum += dollarVol[k]
		}

		row := make([]float64, 0, len(FeatureNames))
		row = append(row, gk[j], rsi[j], bbLow[j], bbMid[j], bbHigh[j], atr[j], macd[j])
		for li := range returnLags {
			row = append(row, lagged[li][j])
		}

		out.dates = append(out.dates, bars[j].Date)
		out.rows = append(out.rows, row)
		out.dollarVol = append(out.dollarVol, dvSum/float64(j-i+1))

		i = j + 1
	}
	return out
}

// liquidityFilter ranks tickers by trailing average monthly dollar volume and
// keeps the top universeCap per date. Small universes pass through untouched.
func (e *Extractor) liquidityFilter(monthly map[string]*tickerMonthly) func(string, time.Time) bool {
	if e.universeCap <= 0 || len(monthly) <= e.universeCap {
		return func(string, time.Time) bool { return true }
	}

	type entry struct {
		ticker string
		dv     float64
	}
	byDate := make(map[time.Time][]entry)
	for tk, m := range monthly {
		for i, d := range m.dates {
			lo := i - liquidityRollMonths + 1
			if lo < 0 {
				lo = 0
			}
			count := i - lo + 1
			if count < liquidityMinMonths {
				continue
			}
			var sum float64
			for k := lo; k <= i; k++ {
				sum += m.dollarVol[k]
			}
			byDate[d] = append(byDate[d], entry{ticker: tk, dv: sum / float64(count)})
		}
	}

	keep := make(map[time.Time]map[string]bool, len(byDate))
	for d, entries := range byDate {
		sort.Slice(entries, func(i, j int) bool { return entries[i].dv > entries[j].dv })
		set := make(map[string]bool, e.universeCap)
		for i, en := range entries {
			if i >= e.universeCap {
				break
			}
			set[en.ticker] = true
		}
		keep[d] = set
	}

	return func(tk string, d time.Time) bool {
		set, ok := keep[d]
		if !ok {
			return false
		}
		return set[tk]
	}
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func hasNaN(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}
