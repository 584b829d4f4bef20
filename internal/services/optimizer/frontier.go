package optimizer

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"AlphaWalk/internal/domain/models"
)

const (
	cleanCutoff    = 0.001
	maxIterations  = 2000
	convergenceTol = 1e-10
)

// Option configures Optimizer.
type Option func(*Optimizer)

// WithRiskFreeRate sets the annual risk-free rate.
func WithRiskFreeRate(rf float64) Option {
	return func(o *Optimizer) {
		o.riskFree = rf
	}
}

// WithWeightBounds sets per-asset box bounds.
func WithWeightBounds(min, max float64) Option {
	return func(o *Optimizer) {
		o.minWeight = min
		o.maxWeight = max
	}
}

// Performance summarizes a solved allocation.
type Performance struct {
	ExpectedReturn float64
	Volatility     float64
	Sharpe         float64
}

// Optimizer solves the long-only max-Sharpe allocation under box bounds and
// a full-investment constraint, by projected gradient ascent on the Sharpe
// ratio. The problem is smooth away from zero volatility and the feasible
// set is a box-capped simplex, so projection is exact.
type Optimizer struct {
	riskFree  float64
	minWeight float64
	maxWeight float64
}

func New(opts ...Option) *Optimizer {
	o := &Optimizer{riskFree: 0.05, minWeight: 0, maxWeight: 1}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ShiftPositive translates expected returns so the minimum sits at +0.01.
// Applied to forecast vectors whose minimum is negative before max-Sharpe.
func ShiftPositive(mu []float64) []float64 {
	min := math.Inf(1)
	for _, v := range mu {
		if v < min {
			min = v
		}
	}
	if min >= 0 {
		return mu
	}
	out := make([]float64, len(mu))
	for i, v := range mu {
		out[i] = v - min + 0.01
	}
	return out
}

// MaxSharpe solves for the weight vector maximizing (mu'w - rf) / sqrt(w'Sw).
// A single asset allocates fully regardless of bounds. Weights below the
// clean cutoff are dropped and the remainder renormalized.
func (o *Optimizer) MaxSharpe(tickers []string, mu []float64, cov *mat.SymDense) (map[string]float64, Performance, error) {
	p := len(tickers)
	if p == 0 || len(mu) != p || cov.SymmetricDim() != p {
		return nil, Performance{}, fmt.Errorf("%w: %d tickers, %d returns, %d cov dim",
			models.ErrOptimizationInfeasible, p, len(mu), cov.SymmetricDim())
	}

	if p == 1 {
		w := map[string]float64{tickers[0]: 1.0}
		perf := o.performance([]float64{1}, mu, cov)
		return w, perf, nil
	}

	maxMu := math.Inf(-1)
	for _, v := range mu {
		if v > maxMu {
			maxMu = v
		}
	}
	if maxMu <= o.riskFree {
		return nil, Performance{}, fmt.Errorf("%w: no expected return above the risk-free rate %.4f",
			models.ErrOptimizationInfeasible, o.riskFree)
	}

	lo, hi := o.minWeight, o.maxWeight
	if float64(p)*hi < 1 || float64(p)*lo > 1 {
		return nil, Performance{}, fmt.Errorf("%w: bounds [%.3f, %.3f] cannot sum to 1 over %d assets",
			models.ErrOptimizationInfeasible, lo, hi, p)
	}

	w := make([]float64, p)
	for i := range w {
		w[i] = 1.0 / float64(p)
	}
	w = projectBoxSimplex(w, lo, hi)

	grad := make([]float64, p)
	sw := make([]float64, p)
	prev := math.Inf(-1)
	step := 0.1

	for iter := 0; iter < maxIterations; iter++ {
		symMulVec(cov, w, sw)
		variance := dot(w, sw)
		if variance <= 0 {
			variance = 1e-12
		}
		vol := math.Sqrt(variance)
		excess := dot(w, mu) - o.riskFree
		sharpe := excess / vol

		// d/dw [(mu'w - rf)/sqrt(w'Sw)] = mu/vol - excess*Sw/vol^3
		for i := 0; i < p; i++ {
			grad[i] = mu[i]/vol - excess*sw[i]/(variance*vol)
		}

		trial := make([]float64, p)
		for i := range trial {
			trial[i] = w[i] + step*grad[i]
		}
		trial = projectBoxSimplex(trial, lo, hi)

		symMulVec(cov, trial, sw)
		tv := dot(trial, sw)
		if tv <= 0 {
			tv = 1e-12
		}
		trialSharpe := (dot(trial, mu) - o.riskFree) / math.Sqrt(tv)

		if trialSharpe > sharpe {
			w = trial
			if trialSharpe-prev < convergenceTol && iter > 10 {
				break
			}
			prev = trialSharpe
			step *= 1.1
		} else {
			step *= 0.5
			if step < 1e-9 {
				break
			}
		}
	}

	perf := o.performance(w, mu, cov)
	weights := cleanWeights(tickers, w)
	if len(weights) == 0 {
		return nil, Performance{}, fmt.Errorf("%w: all weights cleaned to zero", models.ErrOptimizationInfeasible)
	}
	return weights, perf, nil
}

func (o *Optimizer) performance(w, mu []float64, cov *mat.SymDense) Performance {
	sw := make([]float64, len(w))
	symMulVec(cov, w, sw)
	variance := dot(w, sw)
	if variance < 0 {
		variance = 0
	}
	vol := math.Sqrt(variance)
	ret := dot(w, mu)
	sharpe := 0.0
	if vol > 0 {
		sharpe = (ret - o.riskFree) / vol
	}
	return Performance{ExpectedReturn: ret, Volatility: vol, Sharpe: sharpe}
}

// cleanWeights drops allocations at or below the cutoff and renormalizes
// the survivors to sum to one.
func cleanWeights(tickers []string, w []float64) map[string]float64 {
	var total float64
	for _, v := range w {
		if v > cleanCutoff {
			total += v
		}
	}
	out := make(map[string]float64)
	if total == 0 {
		return out
	}
	for i, v := range w {
		if v > cleanCutoff {
			out[tickers[i]] = v / total
		}
	}
	return out
}

// projectBoxSimplex projects v onto {w : sum w = 1, lo <= w_i <= hi} by
// bisecting on the Lagrange shift.
func projectBoxSimplex(v []float64, lo, hi float64) []float64 {
	clipSum := func(lambda float64) float64 {
		var s float64
		for _, x := range v {
			s += clip(x-lambda, lo, hi)
		}
		return s
	}

	lower, upper := -1.0, 1.0
	for clipSum(lower) < 1 {
		lower *= 2
		if lower < -1e12 {
			break
		}
	}
	for clipSum(upper) > 1 {
		upper *= 2
		if upper > 1e12 {
			break
		}
	}

	for i := 0; i < 100; i++ {
		mid := (lower + upper) / 2
		if clipSum(mid) > 1 {
			lower = mid
		} else {
			upper = mid
		}
	}

	lambda := (lower + upper) / 2
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = clip(x-lambda, lo, hi)
	}
	return out
}

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func symMulVec(s *mat.SymDense, v, dst []float64) {
	n := len(v)
	for i := 0; i < n; i++ {
		var acc float64
		for j := 0; j < n; j++ {
			acc += s.At(i, j) * v[j]
		}
		dst[i] = acc
	}
}

// SortedTickers returns map keys ordered by descending weight.
func SortedTickers(weights map[string]float64) []string {
	out := make([]string, 0, len(weights))
	for tk := range weights {
		out = append(out, tk)
	}
	sort.Slice(out, func(i, j int) bool {
		if weights[out[i]] != weights[out[j]] {
			return weights[out[i]] > weights[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
