package optimizer

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"AlphaWalk/internal/domain/models"
)

func diagCov(vars ...float64) *mat.SymDense {
	n := len(vars)
	c := mat.NewSymDense(n, nil)
	for i, v := range vars {
		c.SetSym(i, i, v)
	}
	return c
}

func TestMaxSharpeWeightsSumToOne(t *testing.T) {
	o := New(WithRiskFreeRate(0.05), WithWeightBounds(0, 0.6))
	tickers := []string{"A", "B", "C"}
	mu := []float64{0.15, 0.10, 0.08}
	cov := diagCov(0.04, 0.03, 0.02)

	w, perf, err := o.MaxSharpe(tickers, mu, cov)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}

	var sum float64
	for tk, v := range w {
		if v < 0 {
			t.Fatalf("negative weight for %s: %v", tk, v)
		}
		if v > 0.6+1e-6 {
			t.Fatalf("weight bound breached for %s: %v", tk, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Fatalf("weights must sum to 1, got %v", sum)
	}
	if perf.Volatility <= 0 {
		t.Fatalf("expected positive volatility, got %v", perf.Volatility)
	}
}

func TestMaxSharpePrefersBetterAsset(t *testing.T) {
	o := New(WithRiskFreeRate(0.02), WithWeightBounds(0, 1))
	tickers := []string{"GOOD", "BAD"}
	// same risk, higher return: GOOD dominates
	mu := []float64{0.20, 0.06}
	cov := diagCov(0.04, 0.04)

	w, _, err := o.MaxSharpe(tickers, mu, cov)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if w["GOOD"] <= w["BAD"] {
		t.Fatalf("dominant asset should get more weight: %v", w)
	}
}

func TestMaxSharpeSingleAsset(t *testing.T) {
	o := New(WithRiskFreeRate(0.05), WithWeightBounds(0, 0.17))
	w, _, err := o.MaxSharpe([]string{"ONLY"}, []float64{0.12}, diagCov(0.04))
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if w["ONLY"] != 1.0 {
		t.Fatalf("single asset should take full weight, got %v", w["ONLY"])
	}
}

func TestMaxSharpeInfeasibleWhenAllBelowRiskFree(t *testing.T) {
	o := New(WithRiskFreeRate(0.10), WithWeightBounds(0, 1))
	_, _, err := o.MaxSharpe([]string{"A", "B"}, []float64{0.02, 0.05}, diagCov(0.04, 0.04))
	if !errors.Is(err, models.ErrOptimizationInfeasible) {
		t.Fatalf("expected infeasible error, got %v", err)
	}
}

func TestMaxSharpeInfeasibleBounds(t *testing.T) {
	o := New(WithRiskFreeRate(0.02), WithWeightBounds(0, 0.2))
	// 3 assets x 0.2 max cannot reach full investment
	_, _, err := o.MaxSharpe([]string{"A", "B", "C"}, []float64{0.1, 0.1, 0.1}, diagCov(0.04, 0.04, 0.04))
	if !errors.Is(err, models.ErrOptimizationInfeasible) {
		t.Fatalf("expected infeasible bounds error, got %v", err)
	}
}

func TestShiftPositive(t *testing.T) {
	mu := []float64{-0.05, 0.02, 0.10}
	shifted := ShiftPositive(mu)
	min := math.Inf(1)
	for _, v := range shifted {
		if v < min {
			min = v
		}
	}
	if math.Abs(min-0.01) > 1e-12 {
		t.Fatalf("shifted minimum should be 0.01, got %v", min)
	}
	// ordering preserved
	if !(shifted[0] < shifted[1] && shifted[1] < shifted[2]) {
		t.Fatalf("shift must preserve ordering: %v", shifted)
	}
}

func TestShiftPositiveNoopWhenAlreadyPositive(t *testing.T) {
	mu := []float64{0.01, 0.05}
	shifted := ShiftPositive(mu)
	for i := range mu {
		if shifted[i] != mu[i] {
			t.Fatalf("positive vector should pass through unchanged")
		}
	}
}

func TestCleanWeightsDropsDustAndRenormalizes(t *testing.T) {
	w := cleanWeights([]string{"A", "B", "C"}, []float64{0.699, 0.3005, 0.0005})
	if _, ok := w["C"]; ok {
		t.Fatalf("dust weight should be dropped")
	}
	var sum float64
	for _, v := range w {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("cleaned weights must renormalize to 1, got %v", sum)
	}
}

func TestProjectBoxSimplex(t *testing.T) {
	v := []float64{0.9, 0.9, -0.5}
	w := projectBoxSimplex(v, 0, 0.6)
	var sum float64
	for _, x := range w {
		if x < -1e-9 || x > 0.6+1e-9 {
			t.Fatalf("projection violated bounds: %v", w)
		}
		sum += x
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Fatalf("projection should land on the simplex, got sum %v", sum)
	}
}

func TestPerformanceFlatVolZeroSharpe(t *testing.T) {
	o := New(WithRiskFreeRate(0.05))
	perf := o.performance([]float64{1}, []float64{0.05}, diagCov(0))
	if perf.Sharpe != 0 {
		t.Fatalf("zero volatility should report zero Sharpe, got %v", perf.Sharpe)
	}
}
