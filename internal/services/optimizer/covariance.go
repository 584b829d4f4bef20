package optimizer

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"AlphaWalk/internal/domain/models"
)

const tradingDaysPerYear = 252

// EstimatorOption configures Estimator.
type EstimatorOption func(*Estimator)

// WithMinCoverage sets the required share of panel dates per ticker.
func WithMinCoverage(ratio float64) EstimatorOption {
	return func(e *Estimator) {
		e.minCoverage = ratio
	}
}

// WithMinAssets sets the minimum investable universe size.
func WithMinAssets(n int) EstimatorOption {
	return func(e *Estimator) {
		e.minAssets = n
	}
}

// Estimator derives the investable universe and risk model from a price
// panel. Covariance is annualized over 252 trading days.
type Estimator struct {
	minCoverage float64
	minAssets   int
}

func NewEstimator(opts ...EstimatorOption) *Estimator {
	e := &Estimator{minCoverage: 0.7, minAssets: 5}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EstimateUniverse keeps tickers covering at least minCoverage of the
// panel's dates. Too small a surviving universe is a data problem, not an
// optimization problem, and is reported as such.
func (e *Estimator) EstimateUniverse(panel *models.PricePanel) ([]string, error) {
	if panel.IsEmpty() {
		return nil, fmt.Errorf("%w: empty risk panel", models.ErrDataInsufficiency)
	}
	need := int(e.minCoverage * float64(len(panel.Dates())))
	var out []string
	for _, tk := range panel.Tickers() {
		if panel.CountObservations(tk) >= need {
			out = append(out, tk)
		}
	}
	if len(out) < e.minAssets {
		return nil, fmt.Errorf("%w: only %d tickers with %.0f%% coverage, need %d",
			models.ErrDataInsufficiency, len(out), e.minCoverage*100, e.minAssets)
	}
	return out, nil
}

// Covariance estimates the annualized return covariance, preferring
// Ledoit-Wolf shrinkage and falling back to the pairwise sample estimate
// when too few complete observation rows exist.
func (e *Estimator) Covariance(panel *models.PricePanel, tickers []string) (*mat.SymDense, error) {
	if cov, err := LedoitWolf(panel, tickers); err == nil {
		return cov, nil
	}
	return SampleCovariance(panel, tickers)
}

// returnMatrix builds a dates-by-tickers matrix of simple daily returns.
// Missing observations are NaN.
func returnMatrix(panel *models.PricePanel, tickers []string) ([][]float64, error) {
	dates := panel.Dates()
	if len(dates) < 3 {
		return nil, fmt.Errorf("%w: %d dates is too short for covariance", models.ErrDataInsufficiency, len(dates))
	}
	index := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		index[d] = i
	}

	m := make([][]float64, len(dates))
	for i := range m {
		row := make([]float64, len(tickers))
		for j := range row {
			row[j] = math.NaN()
		}
		m[i] = row
	}

	for j, tk := range tickers {
		bars := panel.Series(tk)
		for i := 1; i < len(bars); i++ {
			prev, cur := bars[i-1].AdjClose, bars[i].AdjClose
			if prev <= 0 {
				continue
			}
			m[index[bars[i].Date]][j] = cur/prev - 1
		}
	}
	// first date has no return for anyone
	return m[1:], nil
}

// SampleCovariance computes the pairwise-complete sample covariance of
// daily returns, annualized.
func SampleCovariance(panel *models.PricePanel, tickers []string) (*mat.SymDense, error) {
	rets, err := returnMatrix(panel, tickers)
	if err != nil {
		return nil, err
	}
	p := len(tickers)
	cov := mat.NewSymDense(p, nil)

	for a := 0; a < p; a++ {
		for b := a; b < p; b++ {
			var sa, sb, sab float64
			var n int
			for _, row := range rets {
				x, y := row[a], row[b]
				if math.IsNaN(x) || math.IsNaN(y) {
					continue
				}
				sa += x
				sb += y
				sab += x * y
				n++
			}
			if n < 2 {
				cov.SetSym(a, b, 0)
				continue
			}
			ma, mb := sa/float64(n), sb/float64(n)
			c := (sab - float64(n)*ma*mb) / float64(n-1)
			cov.SetSym(a, b, c*tradingDaysPerYear)
		}
	}
	return cov, nil
}

// LedoitWolf shrinks the sample covariance toward a scaled identity with
// the closed-form optimal intensity. Requires complete observation rows.
func LedoitWolf(panel *models.PricePanel, tickers []string) (*mat.SymDense, error) {
	rets, err := returnMatrix(panel, tickers)
	if err != nil {
		return nil, err
	}
	p := len(tickers)

	var complete [][]float64
	for _, row := range rets {
		ok := true
		for _, v := range row {
			if math.IsNaN(v) {
				ok = false
				break
			}
		}
		if ok {
			complete = append(complete, row)
		}
	}
	n := len(complete)
	if n < p+1 {
		return nil, fmt.Errorf("%w: %d complete rows for %d assets", models.ErrDataInsufficiency, n, p)
	}

	means := make([]float64, p)
	for _, row := range complete {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}

	// sample covariance with 1/n normalization on demeaned data
	s := make([][]float64, p)
	for a := range s {
		s[a] = make([]float64, p)
	}
	for _, row := range complete {
		for a := 0; a < p; a++ {
			da := row[a] - means[a]
			for b := a; b < p; b++ {
				s[a][b] += da * (row[b] - means[b])
			}
		}
	}
	for a := 0; a < p; a++ {
		for b := a; b < p; b++ {
			s[a][b] /= float64(n)
			s[b][a] = s[a][b]
		}
	}

	// shrinkage target: mu * I
	var mu float64
	for a := 0; a < p; a++ {
		mu += s[a][a]
	}
	mu /= float64(p)

	var d2 float64
	for a := 0; a < p; a++ {
		for b := 0; b < p; b++ {
			diff := s[a][b]
			if a == b {
				diff -= mu
			}
			d2 += diff * diff
		}
	}

	var b2 float64
	for _, row := range complete {
		var dist float64
		for a := 0; a < p; a++ {
			da := row[a] - means[a]
			for b := 0; b < p; b++ {
				diff := da*(row[b]-means[b]) - s[a][b]
				dist += diff * diff
			}
		}
		b2 += dist
	}
	b2 /= float64(n * n)
	if b2 > d2 {
		b2 = d2
	}

	shrink := 0.0
	if d2 > 0 {
		shrink = b2 / d2
	}

	cov := mat.NewSymDense(p, nil)
	for a := 0; a < p; a++ {
		for b := a; b < p; b++ {
			v := (1 - shrink) * s[a][b]
			if a == b {
				v += shrink * mu
			}
			cov.SetSym(a, b, v*tradingDaysPerYear)
		}
	}
	return cov, nil
}

// MeanHistoricalReturns computes annualized geometric mean returns per
// ticker, the non-predictive path's expected-return estimate.
func MeanHistoricalReturns(panel *models.PricePanel, tickers []string) map[string]float64 {
	out := make(map[string]float64, len(tickers))
	for _, tk := range tickers {
		bars := panel.Series(tk)
		var growth float64 = 1
		var n int
		for i := 1; i < len(bars); i++ {
			prev, cur := bars[i-1].AdjClose, bars[i].AdjClose
			if prev <= 0 {
				continue
			}
			growth *= cur / prev
			n++
		}
		if n == 0 || growth <= 0 {
			out[tk] = 0
			continue
		}
		out[tk] = math.Pow(growth, tradingDaysPerYear/float64(n)) - 1
	}
	return out
}
