package features

import (
	"math"
	"sort"
)

// GarmanKlassVol computes per-bar Garman-Klass volatility from OHLC levels.
// Uses the adjusted close against the open for the drift term.
func GarmanKlassVol(open, high, low, adjClose float64) float64 {
	if open <= 0 || high <= 0 || low <= 0 || adjClose <= 0 {
		return math.NaN()
	}
	hl := math.Log(high) - math.Log(low)
	co := math.Log(adjClose) - math.Log(open)
	return hl*hl/2 - (2*math.Ln2-1)*co*co
}

// RSI computes the relative strength index with Wilder smoothing. The first
// window-1 values are NaN.
func RSI(closes []float64, window int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if n <= window {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= window; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(window)
	avgLoss /= float64(window)
	out[window] = rsiValue(avgGain, avgLoss)

	for i := window + 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(window-1) + gain) / float64(window)
		avgLoss = (avgLoss*float64(window-1) + loss) / float64(window)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Bollinger computes lower, middle and upper bands on log1p prices using a
// rolling mean and population standard deviation.
func Bollinger(closes []float64, window int, dev float64) (low, mid, high []float64) {
	n := len(closes)
	low, mid, high = nanSlice(n), nanSlice(n), nanSlice(n)

	logp := make([]float64, n)
	for i, c := range closes {
		logp[i] = math.Log1p(c)
	}

	for i := window - 1; i < n; i++ {
		var sum, sum2 float64
		for j := i - window + 1; j <= i; j++ {
			sum += logp[j]
			sum2 += logp[j] * logp[j]
		}
		w := float64(window)
		mean := sum / w
		variance := sum2/w - mean*mean
		if variance < 0 {
			variance = 0
		}
		sd := math.Sqrt(variance)
		mid[i] = mean
		low[i] = mean - dev*sd
		high[i] = mean + dev*sd
	}
	return low, mid, high
}

// ATR computes the average true range with Wilder smoothing.
func ATR(high, low, clos []float64, window int) []float64 {
	n := len(clos)
	out := nanSlice(n)
	if n <= window {
		return out
	}

	tr := make([]float64, n)
	tr[0] = high[0] - low[0]
	for i := 1; i < n; i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - clos[i-1])
		lc := math.Abs(low[i] - clos[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	var sum float64
	for i := 1; i <= window; i++ {
		sum += tr[i]
	}
	atr := sum / float64(window)
	out[window] = atr
	for i := window + 1; i < n; i++ {
		atr = (atr*float64(window-1) + tr[i]) / float64(window)
		out[i] = atr
	}
	return out
}

// MACDLine computes the MACD line (fast EMA minus slow EMA).
func MACDLine(closes []float64, fast, slow int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if n < slow {
		return out
	}
	emaFast := ema(closes, fast)
	emaSlow := ema(closes, slow)
	for i := slow - 1; i < n; i++ {
		out[i] = emaFast[i] - emaSlow[i]
	}
	return out
}

func ema(xs []float64, span int) []float64 {
	n := len(xs)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = xs[0]
	for i := 1; i < n; i++ {
		out[i] = alpha*xs[i] + (1-alpha)*out[i-1]
	}
	return out
}

// ZScore normalizes a series in place against its finite mean and standard
// deviation. NaN entries stay NaN.
func ZScore(xs []float64) []float64 {
	var sum, sum2 float64
	var count int
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		sum += x
		sum2 += x * x
		count++
	}
	out := nanSlice(len(xs))
	if count < 2 {
		return out
	}
	mean := sum / float64(count)
	variance := (sum2 - float64(count)*mean*mean) / float64(count-1)
	if variance <= 0 {
		return out
	}
	sd := math.Sqrt(variance)
	for i, x := range xs {
		if !math.IsNaN(x) {
			out[i] = (x - mean) / sd
		}
	}
	return out
}

// LagReturns computes geometric per-bar returns over a lag, winsorized at the
// given per-series quantile before averaging down to one bar.
func LagReturns(closes []float64, lag int, outlierCutoff float64) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if n <= lag {
		return out
	}

	raw := nanSlice(n)
	finite := make([]float64, 0, n-lag)
	for i := lag; i < n; i++ {
		if closes[i-lag] <= 0 {
			continue
		}
		r := closes[i]/closes[i-lag] - 1
		raw[i] = r
		finite = append(finite, r)
	}
	if len(finite) == 0 {
		return out
	}

	lo := quantile(finite, outlierCutoff)
	hi := quantile(finite, 1-outlierCutoff)
	for i := lag; i < n; i++ {
		r := raw[i]
		if math.IsNaN(r) {
			continue
		}
		if r < lo {
			r = lo
		}
		if r > hi {
			r = hi
		}
		out[i] = math.Pow(1+r, 1/float64(lag)) - 1
	}
	return out
}

func quantile(xs []float64, q float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
