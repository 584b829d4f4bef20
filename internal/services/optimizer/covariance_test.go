package optimizer

import (
	"errors"
	"math"
	"testing"
	"time"

	"AlphaWalk/internal/domain/models"
)

func covPanel(tickers []string, days int, skipEvery map[string]int) *models.PricePanel {
	var bars []models.Bar
	for ti, tk := range tickers {
		price := 100.0
		d := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
		for i := 0; i < days; i++ {
			for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
				d = d.AddDate(0, 0, 1)
			}
			skip := skipEvery[tk] > 0 && i%skipEvery[tk] == 0
			if !skip {
				price *= 1 + 0.002*math.Sin(float64(i)+float64(ti))
				bars = append(bars, models.Bar{
					Date: d, Ticker: tk,
					Open: price, High: price * 1.01, Low: price * 0.99,
					Close: price, AdjClose: price, Volume: 1e6,
				})
			}
			d = d.AddDate(0, 0, 1)
		}
	}
	return models.NewPricePanel(bars)
}

func TestEstimateUniverseFiltersSparseTickers(t *testing.T) {
	tickers := []string{"A", "B", "C", "D", "E", "F"}
	// F misses every other day, well under 70% coverage
	panel := covPanel(tickers, 200, map[string]int{"F": 2})

	universe, err := NewEstimator().EstimateUniverse(panel)
	if err != nil {
		t.Fatalf("estimate universe: %v", err)
	}
	for _, tk := range universe {
		if tk == "F" {
			t.Fatalf("sparse ticker survived the coverage filter")
		}
	}
	if len(universe) != 5 {
		t.Fatalf("expected 5 surviving tickers, got %d", len(universe))
	}
}

func TestEstimateUniverseTooSmall(t *testing.T) {
	panel := covPanel([]string{"A", "B"}, 200, nil)
	_, err := NewEstimator().EstimateUniverse(panel)
	if !errors.Is(err, models.ErrDataInsufficiency) {
		t.Fatalf("expected data insufficiency, got %v", err)
	}
}

func TestSampleCovarianceSymmetricPositiveDiagonal(t *testing.T) {
	tickers := []string{"A", "B", "C"}
	panel := covPanel(tickers, 300, nil)

	cov, err := SampleCovariance(panel, tickers)
	if err != nil {
		t.Fatalf("sample cov: %v", err)
	}
	for i := range tickers {
		if cov.At(i, i) <= 0 {
			t.Fatalf("variance must be positive, got %v", cov.At(i, i))
		}
		for j := range tickers {
			if cov.At(i, j) != cov.At(j, i) {
				t.Fatalf("covariance must be symmetric")
			}
		}
	}
}

func TestLedoitWolfShrinksOffDiagonals(t *testing.T) {
	tickers := []string{"A", "B", "C", "D"}
	panel := covPanel(tickers, 300, nil)

	sample, err := SampleCovariance(panel, tickers)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	lw, err := LedoitWolf(panel, tickers)
	if err != nil {
		t.Fatalf("ledoit-wolf: %v", err)
	}

	var sampleOff, lwOff float64
	for i := range tickers {
		for j := range tickers {
			if i != j {
				sampleOff += math.Abs(sample.At(i, j))
				lwOff += math.Abs(lw.At(i, j))
			}
		}
	}
	if lwOff > sampleOff+1e-12 {
		t.Fatalf("shrinkage should not grow off-diagonal mass: %v vs %v", lwOff, sampleOff)
	}
}

func TestCovarianceFallsBackOnShortHistory(t *testing.T) {
	tickers := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	// 8 assets on 8 trading days: too few complete rows for shrinkage
	panel := covPanel(tickers, 8, nil)

	cov, err := NewEstimator().Covariance(panel, tickers)
	if err != nil {
		t.Fatalf("covariance fallback: %v", err)
	}
	if cov.SymmetricDim() != len(tickers) {
		t.Fatalf("unexpected covariance dimension %d", cov.SymmetricDim())
	}
}

func TestMeanHistoricalReturnsSign(t *testing.T) {
	var bars []models.Bar
	d := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	up, down := 100.0, 100.0
	for i := 0; i < 100; i++ {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		up *= 1.001
		down *= 0.999
		for tk, p := range map[string]float64{"UP": up, "DN": down} {
			bars = append(bars, models.Bar{
				Date: d, Ticker: tk,
				Open: p, High: p, Low: p, Close: p, AdjClose: p, Volume: 1e6,
			})
		}
		d = d.AddDate(0, 0, 1)
	}
	panel := models.NewPricePanel(bars)

	mu := MeanHistoricalReturns(panel, []string{"UP", "DN"})
	if mu["UP"] <= 0 {
		t.Fatalf("rising asset should have positive expected return, got %v", mu["UP"])
	}
	if mu["DN"] >= 0 {
		t.Fatalf("falling asset should have negative expected return, got %v", mu["DN"])
	}
}
